package azure

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"faceguard.io/infrastructure/file_upload/types"
	"faceguard.io/infrastructure/logger"
	_azblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblob_sas "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	azblob "github.com/Azure/azure-storage-blob-go/azblob"
)

type AzureBlobService struct {
	AccountName   string
	ContainerName string
	AccountKey    string
}

func (azservice *AzureBlobService) blockBlobURL(fileName string) (*azblob.BlockBlobURL, error) {
	credential, err := azblob.NewSharedKeyCredential(azservice.AccountName, azservice.AccountKey)
	if err != nil {
		logger.Error("error generating azblob shared key credential", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	URL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", azservice.AccountName, azservice.ContainerName, fileName))
	if err != nil {
		logger.Error("error parsing blob url", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	blobURL := azblob.NewBlockBlobURL(*URL, azblob.NewPipeline(credential, azblob.PipelineOptions{}))
	return &blobURL, nil
}

func (azservice *AzureBlobService) UploadFile(fileName string, data []byte, contentType string) error {
	blobURL, err := azservice.blockBlobURL(fileName)
	if err != nil {
		return err
	}
	_, err = azblob.UploadBufferToBlockBlob(context.TODO(), data, *blobURL, azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{ContentType: contentType},
	})
	if err != nil {
		logger.Error("error uploading file to azure blob storage", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "file_name",
			Data: fileName,
		})
		return err
	}
	return nil
}

// GenerateDownloadURL creates a short lived read only SAS url for a stored image
func (azservice *AzureBlobService) GenerateDownloadURL(fileName string) (*string, error) {
	_credential, err := _azblob.NewSharedKeyCredential(azservice.AccountName, azservice.AccountKey)
	if err != nil {
		logger.Error("error generating _azblob shared key credential", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	blobURL, err := azservice.blockBlobURL(fileName)
	if err != nil {
		return nil, err
	}
	sasQueryParams, err := azblob_sas.BlobSignatureValues{
		Protocol:      azblob_sas.ProtocolHTTPS,
		StartTime:     time.Now().UTC(),
		ExpiryTime:    time.Now().UTC().Add(5 * time.Minute), // url is valid for only 5 mins
		Permissions:   (&azblob_sas.BlobPermissions{Read: true}).String(),
		ContainerName: azservice.ContainerName,
		BlobName:      fileName,
	}.SignWithSharedKey(_credential)
	if err != nil {
		logger.Error("error signing blob signature values", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	sasURL := fmt.Sprintf("%s?%s", blobURL.String(), sasQueryParams.Encode())
	return &sasURL, nil
}

func (azservice *AzureBlobService) DeleteFile(fileName string) error {
	blobURL, err := azservice.blockBlobURL(fileName)
	if err != nil {
		return err
	}
	_, err = blobURL.Delete(context.TODO(), azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		logger.Error("error deleting file from azure blob storage", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "file_name",
			Data: fileName,
		})
		return err
	}
	return nil
}

func (azservice *AzureBlobService) CheckFileExists(fileName string) (bool, error) {
	blobURL, err := azservice.blockBlobURL(fileName)
	if err != nil {
		return false, err
	}
	_, err = blobURL.GetProperties(context.TODO(), azblob.BlobAccessConditions{}, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if serr, ok := err.(azblob.StorageError); ok {
			if serr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
				return false, nil
			}
		}
		return false, err
	}
	return true, nil
}

var _ types.FileUploaderType = (*AzureBlobService)(nil)
