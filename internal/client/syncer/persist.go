package syncer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"orachat/backend/internal/models"

	"go.uber.org/zap"
)

// persistedSession is the on-disk session snapshot. Only the user survives
// restarts; chats and the roster are refetched.
type persistedSession struct {
	User *models.User `json:"user"`
}

// LoadPersisted reads the saved session, if any. A missing or unreadable
// file just means a fresh start.
func (c *Controller) LoadPersisted() *models.User {
	if c.stateFile == "" {
		return nil
	}
	raw, err := os.ReadFile(c.stateFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("session state unreadable", zap.String("path", c.stateFile), zap.Error(err))
		}
		return nil
	}
	var snap persistedSession
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("session state corrupt", zap.String("path", c.stateFile), zap.Error(err))
		return nil
	}
	return snap.User
}

func (c *Controller) persist() {
	if c.stateFile == "" {
		return
	}
	user := c.session.User()
	if user == nil {
		return
	}
	raw, err := json.MarshalIndent(persistedSession{User: user}, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.stateFile), 0o700); err != nil {
		c.logger.Warn("session state dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.stateFile, raw, 0o600); err != nil {
		c.logger.Warn("session state write failed", zap.String("path", c.stateFile), zap.Error(err))
	}
}

func (c *Controller) clearPersisted() {
	if c.stateFile == "" {
		return
	}
	if err := os.Remove(c.stateFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("session state remove failed", zap.String("path", c.stateFile), zap.Error(err))
	}
}
