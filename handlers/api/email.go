package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"webmail/config"
	"webmail/middleware"
	"webmail/service"
	"webmail/utils"
)

// EmailHandler serves the mailbox routes.
type EmailHandler struct {
	mailbox *service.MailboxService
	upload  config.UploadConfig
}

// NewEmailHandler creates an email handler.
func NewEmailHandler(mailbox *service.MailboxService, upload config.UploadConfig) *EmailHandler {
	return &EmailHandler{mailbox: mailbox, upload: upload}
}

// HandleList returns a filtered, paginated mailbox listing.
func (h *EmailHandler) HandleList(c *fiber.Ctx) error {
	result, err := h.mailbox.GetEmails(middleware.UserID(c), parseEmailQuery(c))
	if err != nil {
		return err
	}
	return success(c, result, "")
}

// HandleGet returns a single message. Fetching an unread message marks it
// read.
func (h *EmailHandler) HandleGet(c *fiber.Ctx) error {
	email, err := h.mailbox.GetEmailByID(middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"email": email}, "")
}

// HandleSend accepts a multipart or JSON send request. Attachments come
// in as multipart files under the "attachments" field.
func (h *EmailHandler) HandleSend(c *fiber.Ctx) error {
	var req service.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}

	// Recipients may arrive as comma-joined form values.
	if len(req.To) == 1 && strings.Contains(req.To[0], ",") {
		req.To = strings.Split(req.To[0], ",")
	}

	files, err := attachmentFiles(c)
	if err != nil {
		return err
	}
	stored, err := saveAttachments(files, h.upload)
	if err != nil {
		return err
	}

	result, err := h.mailbox.SendEmail(middleware.UserID(c), req, stored)
	if err != nil {
		return err
	}
	c.Status(fiber.StatusCreated)
	return success(c, result, "Email sent successfully")
}

// HandleUpdate applies a partial patch to a message.
func (h *EmailHandler) HandleUpdate(c *fiber.Ctx) error {
	var patch service.UpdatePatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}

	email, err := h.mailbox.UpdateEmail(middleware.UserID(c), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"email": email}, "Email updated successfully")
}

// HandleDelete soft-deletes a message into trash.
func (h *EmailHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.mailbox.DeleteEmail(middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return success(c, fiber.Map{}, "Email moved to trash")
}

// HandlePermanentDelete removes a message from storage.
func (h *EmailHandler) HandlePermanentDelete(c *fiber.Ctx) error {
	if err := h.mailbox.PermanentlyDeleteEmail(middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return success(c, fiber.Map{}, "Email permanently deleted")
}

// HandleMarkSpam flags or clears the spam state of a message.
func (h *EmailHandler) HandleMarkSpam(c *fiber.Ctx) error {
	var req struct {
		IsSpam *bool `json:"isSpam"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}
	if req.IsSpam == nil {
		return utils.BadRequestError("isSpam must be a boolean value", nil)
	}

	email, err := h.mailbox.MarkAsSpam(middleware.UserID(c), c.Params("id"), *req.IsSpam)
	if err != nil {
		return err
	}
	msg := "Email marked as not spam"
	if *req.IsSpam {
		msg = "Email marked as spam"
	}
	return success(c, fiber.Map{"email": email}, msg)
}

// HandleLabels replaces a message's label set.
func (h *EmailHandler) HandleLabels(c *fiber.Ctx) error {
	var req struct {
		Labels []string `json:"labels"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}
	if req.Labels == nil {
		return utils.BadRequestError("labels are required", nil)
	}

	email, err := h.mailbox.UpdateEmailLabels(middleware.UserID(c), c.Params("id"), req.Labels)
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"email": email}, "Labels updated")
}

// HandleAttachments lists a message's attachment descriptors.
func (h *EmailHandler) HandleAttachments(c *fiber.Ctx) error {
	attachments, err := h.mailbox.GetEmailAttachments(middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"attachments": attachments}, "")
}

// HandleFolder lists one folder, newest first.
func (h *EmailHandler) HandleFolder(c *fiber.Ctx) error {
	emails, err := h.mailbox.GetEmailsByFolder(middleware.UserID(c), c.Params("folder"))
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"emails": emails}, "")
}

// HandleSearch runs a plain search over subject and bodies.
func (h *EmailHandler) HandleSearch(c *fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return utils.BadRequestError("search term is required", nil)
	}
	emails, err := h.mailbox.SearchEmails(middleware.UserID(c), term)
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"emails": emails}, "")
}

// HandleStats returns mailbox statistics.
func (h *EmailHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.mailbox.GetEmailStats(middleware.UserID(c))
	if err != nil {
		return err
	}
	return success(c, stats, "")
}

// HandleBulkUpdate patches many messages best-effort. The response only
// reports how many were attempted; per-item failures are logged
// server-side.
func (h *EmailHandler) HandleBulkUpdate(c *fiber.Ctx) error {
	var req struct {
		EmailIDs []string            `json:"emailIds"`
		Update   service.UpdatePatch `json:"update"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}
	if len(req.EmailIDs) == 0 {
		return utils.BadRequestError("emailIds are required", nil)
	}

	attempted := h.mailbox.BulkUpdateEmails(middleware.UserID(c), req.EmailIDs, req.Update)
	return success(c, fiber.Map{"attempted": attempted}, "Bulk update completed")
}

// HandleBulkDelete trashes many messages best-effort.
func (h *EmailHandler) HandleBulkDelete(c *fiber.Ctx) error {
	var req struct {
		EmailIDs []string `json:"emailIds"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}
	if len(req.EmailIDs) == 0 {
		return utils.BadRequestError("emailIds are required", nil)
	}

	attempted := h.mailbox.BulkDeleteEmails(middleware.UserID(c), req.EmailIDs)
	return success(c, fiber.Map{"attempted": attempted}, "Bulk delete completed")
}
