package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-draftsync/internal/config"
)

type commandContext struct {
	root       *cobra.Command
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(root *cobra.Command, configFlag *string) *commandContext {
	return &commandContext{
		root:       root,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		v := config.New(path)
		if v.ConfigFileUsed() != "" {
			if err := v.ReadInConfig(); err != nil {
				c.configErr = fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
				return
			}
		}
		flags := c.root.PersistentFlags()
		for name, key := range flagBindings {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					c.configErr = fmt.Errorf("config: bind --%s: %w", name, err)
					return
				}
			}
		}
		c.config, c.configErr = config.FromViper(v)
	})
	return c.config, c.configErr
}
