package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/yongli3/voice-system/pkg/hub"
	"github.com/yongli3/voice-system/pkg/supervisor"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.cfg.Controller.Snapshot())
}

func (s *Server) handleCommands(c *fiber.Ctx) error {
	return c.JSON(s.cfg.Controller.Table().Entries())
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.cfg.History == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "journal not configured",
		})
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and " + strconv.Itoa(maxHistoryLimit),
		})
	}

	entries, err := s.cfg.History.Recent(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(entries)
}

func (s *Server) handleOverride(c *fiber.Ctx) error {
	code, err := strconv.Atoi(c.Params("code"))
	if err != nil || code < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code must be a non-negative integer",
		})
	}
	if _, ok := s.cfg.Controller.Table().FindEntryByCode(code); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown command code " + strconv.Itoa(code),
		})
	}

	if err := s.cfg.Controller.Override(code); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, supervisor.ErrNotManual) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("override from dashboard", "code", code, "ip", c.IP())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"code": code, "queued": true})
}

func (s *Server) handleStatusWS(conn *websocket.Conn) {
	initial, err := json.Marshal(s.cfg.Controller.Snapshot())
	if err != nil {
		s.logger.Warn("failed to encode status", "error", err)
		initial = nil
	}
	client := hub.NewClient(s.statusHub, conn, initial)
	if client == nil {
		return
	}
	client.Run()
}
