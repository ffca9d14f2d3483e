package permissions

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// SettingsNotice is the terminal counterpart of "open app settings": it
// tells the user where blocked permissions can be changed.
type SettingsNotice struct {
	path   string
	out    io.Writer
	logger *zap.SugaredLogger
}

func NewSettingsNotice(path string, out io.Writer, logger *zap.SugaredLogger) *SettingsNotice {
	return &SettingsNotice{path: path, out: out, logger: logger}
}

func (n *SettingsNotice) OpenSettings(ctx context.Context) {
	n.logger.Infow("directing user to permission settings", "grants_file", n.path)
	fmt.Fprintf(n.out, "\nPermissions required: camera and microphone access are needed to go live.\n"+
		"Set them to \"granted\" in %s or run `rillcast permissions reset`.\n", n.path)
}
