package collab

import (
	"os"

	"livedocs-server/collab/aws"
	"livedocs-server/collab/filesystem"
	"livedocs-server/collab/liveblocks"
	"livedocs-server/collab/memory"
	"livedocs-server/collab/sqlite"
	"livedocs-server/core"

	"github.com/sirupsen/logrus"
)

// GetService picks the collaboration backend from the environment. The
// "liveblocks" backend talks to the hosted service; every other choice is a
// self-host store implementing the same contract.
func GetService() core.CollabService {
	backend := os.Getenv("COLLAB_BACKEND")
	var service core.CollabService

	backendField := logrus.Fields{
		"backend": backend,
	}

	switch backend {
	case "liveblocks":
		secretKey := os.Getenv("LIVEBLOCKS_SECRET_KEY")
		if secretKey == "" {
			logrus.Fatal("LIVEBLOCKS_SECRET_KEY environment variable must be set for the liveblocks backend")
		}
		service = liveblocks.NewClient(secretKey, os.Getenv("LIVEBLOCKS_BASE_URL"))
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data"
		}
		backendField["basePath"] = basePath
		service = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "livedocs.db"
		}
		backendField["dataSourceName"] = dataSourceName
		service = sqlite.NewStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 backend")
		}
		backendField["bucketName"] = bucketName
		service = aws.NewStore(bucketName)
	default:
		service = memory.NewStore()
		backendField["backend"] = "in-memory"
	}
	logrus.WithFields(backendField).Info("Use collaboration backend")
	return service
}
