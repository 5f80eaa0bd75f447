package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-edgeview/pkg/hub"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/source"
)

// handleStatus returns pipeline stats
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleFrame returns the latest processed frame as JPEG
func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.cfg.Snapshot == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "snapshots not configured"})
	}
	data, err := s.cfg.Snapshot(c.QueryInt("quality", s.cfg.Quality))
	if errors.Is(err, processor.ErrNoOutput) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no frame processed yet"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

// handleGetConfig returns the source config
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	if s.cfg.Sources == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "source config not available"})
	}
	return c.JSON(s.cfg.Sources.GetConfig())
}

// handleUpdateConfig applies a partial source config update
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	if s.cfg.Sources == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "source config not available"})
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if err := s.cfg.Sources.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("source config updated", "config", s.cfg.Sources.GetConfig())
	return c.JSON(s.cfg.Sources.GetConfig())
}

// handlePresets lists source presets
func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(source.PresetNames())
}

// handleFramesWS streams JPEG frames
func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frameHub, c).Run()
}

// handleStatusWS streams status JSON
func (s *Server) handleStatusWS(c *websocket.Conn) {
	c.WriteJSON(s.Status())
	hub.NewClient(s.statusHub, c).Run()
}
