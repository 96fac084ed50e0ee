package injection

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard leaves the text on the system clipboard for the user to paste.
// It cannot erase, so it never serves live mode.
type Clipboard struct {
	write func(string) error
}

func NewClipboard() *Clipboard { return &Clipboard{write: clipboard.WriteAll} }

func (c *Clipboard) Name() string { return "clipboard" }

func (c *Clipboard) Available() error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard, xclip or xsel)")
	}
	return nil
}

func (c *Clipboard) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.write(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
