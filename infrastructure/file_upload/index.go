package fileupload

import (
	"os"

	"faceguard.io/infrastructure/file_upload/azure"
	"faceguard.io/infrastructure/file_upload/types"
)

func NewFileUploader() types.FileUploaderType {
	return &azure.AzureBlobService{
		AccountName:   os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
		AccountKey:    os.Getenv("AZURE_STORAGE_ACCOUNT_KEY"),
		ContainerName: os.Getenv("AZURE_CONTAINER_NAME"),
	}
}
