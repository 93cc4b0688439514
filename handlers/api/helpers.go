package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"webmail/config"
	"webmail/models"
	"webmail/storage"
	"webmail/utils"
)

// success writes the standard success envelope.
func success(c *fiber.Ctx, data interface{}, message string) error {
	body := fiber.Map{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.JSON(body)
}

// parseBoolParam reads an optional bool query parameter; absent or
// unparsable values return nil.
func parseBoolParam(c *fiber.Ctx, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// parseEmailQuery assembles the listing query from request parameters.
func parseEmailQuery(c *fiber.Ctx) storage.EmailQuery {
	q := storage.EmailQuery{
		Folder:    c.Query("folder"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      c.QueryInt("page"),
		Limit:     c.QueryInt("limit"),
		IsRead:    parseBoolParam(c, "isRead"),
		IsStarred: parseBoolParam(c, "isStarred"),
		IsSpam:    parseBoolParam(c, "isSpam"),
	}
	if labels := c.Query("labels"); labels != "" {
		for _, l := range strings.Split(labels, ",") {
			if l = strings.TrimSpace(l); l != "" {
				q.Labels = append(q.Labels, l)
			}
		}
	}
	q.HasAttachments = parseBoolParam(c, "hasAttachments")
	return q
}

// attachmentFiles extracts uploaded files from a multipart request.
// JSON requests simply have none.
func attachmentFiles(c *fiber.Ctx) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	return form.File["attachments"], nil
}

// saveAttachments writes multipart uploads into the upload directory and
// returns their descriptors. Files get a uuid-prefixed name; the checksum
// is a sha256 over the content.
func saveAttachments(files []*multipart.FileHeader, cfg config.UploadConfig) ([]models.Attachment, error) {
	if len(files) > cfg.MaxFiles {
		return nil, utils.BadRequestError(fmt.Sprintf("too many files (max %d)", cfg.MaxFiles), nil)
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, utils.InternalServerError("failed to create upload directory", err)
	}

	attachments := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		if !config.UploadTypeAllowed(contentType) {
			return nil, utils.BadRequestError(fmt.Sprintf("file type %s is not allowed", contentType), nil)
		}
		if fh.Size > cfg.MaxSize {
			return nil, utils.BadRequestError("file too large", nil)
		}

		att, err := storeUpload(fh, cfg.Dir, contentType)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func storeUpload(fh *multipart.FileHeader, dir, contentType string) (models.Attachment, error) {
	src, err := fh.Open()
	if err != nil {
		return models.Attachment{}, utils.InternalServerError("failed to open upload", err)
	}
	defer src.Close()

	path := filepath.Join(dir, uuid.New().String()+"-"+filepath.Base(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return models.Attachment{}, utils.InternalServerError("failed to store upload", err)
	}
	defer dst.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hasher), src)
	if err != nil {
		os.Remove(path)
		return models.Attachment{}, utils.InternalServerError("failed to write upload", err)
	}

	return models.Attachment{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        size,
		Path:        path,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}
