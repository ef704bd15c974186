package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"casamento/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const presentsFolder = "presentes"

// ErrUploadDisabled is returned when no image host is configured.
var ErrUploadDisabled = errors.New("image upload not configured")

// Uploader stores gift images and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

type cloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewUploader returns a Cloudinary uploader, or a disabled one when the
// credentials are missing.
func NewUploader(cfg config.CloudinaryConfig) (Uploader, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &cloudinaryUploader{cld: cld}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: presentsFolder,
	})
	if err != nil {
		return "", fmt.Errorf("upload error for %s: %w", filename, err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("upload error for %s: empty url", filename)
	}
	return resp.SecureURL, nil
}

// Disabled rejects every upload.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string) (string, error) {
	return "", ErrUploadDisabled
}
