package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessTypesFor(t *testing.T) {
	tests := []struct {
		userType UserType
		want     []AccessType
	}{
		{UserTypeCreator, []AccessType{AccessWrite}},
		{UserTypeEditor, []AccessType{AccessWrite}},
		{UserTypeViewer, []AccessType{AccessRead, AccessPresenceWrite}},
		{UserType("unknown"), []AccessType{AccessRead, AccessPresenceWrite}},
		{UserType(""), []AccessType{AccessRead, AccessPresenceWrite}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AccessTypesFor(tt.userType), "userType %q", tt.userType)
	}
}
