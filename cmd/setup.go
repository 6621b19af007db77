package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, initializes the database and prepares the media directory.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv()
		r.config = config
		r.logger.Info("config file created", "path", r.configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.openStore(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if r.config.Album.PersistMedia {
		if _, err := r.blobStore(); err != nil {
			return fmt.Errorf("failed to create media directory: %w", err)
		}
		r.logger.Info("media directory ready", "dir", r.config.Media.Dir)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	if r.config.Credentials.Twitter.ConsumerKey == "" {
		r.writePlain("%s\n", styles.Warn("Add credentials.twitter consumer_key and consumer_secret to "+r.configPath))
	}
	return nil
}
