package playback

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/tvdeck/tvdeck/internal/util"
)

var (
	errEngineUnavailable = errors.New("no hls engine configured")
	errPlayerUnavailable = errors.New("no player configured")
)

// Player hands a progressive source to an actual renderer. Play blocks
// until playback finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, source Source) error
	Name() string
	Available() bool
}

// ExecPlayer launches an external player binary with explicit argument
// slices; nothing passes through a shell.
type ExecPlayer struct {
	binary string
}

// NewExecPlayer creates a player for the given binary. Empty picks up the
// TVDECK_PLAYER environment variable or the first common player on PATH.
func NewExecPlayer(binary string) *ExecPlayer {
	if resolved, err := util.FindPlayer(binary); err == nil {
		return &ExecPlayer{binary: resolved}
	}
	if binary == "" {
		binary = "mpv"
	}
	return &ExecPlayer{binary: binary}
}

func (p *ExecPlayer) Name() string { return p.binary }

// Available checks the binary exists in PATH.
func (p *ExecPlayer) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Play runs the player until it exits. A user quit is not an error.
func (p *ExecPlayer) Play(ctx context.Context, source Source) error {
	args := []string{source.URL, "--really-quiet"}
	if source.Title != "" {
		args = append(args, "--force-media-title="+source.Title)
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		// mpv exits 4 on user quit.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 4 {
			return nil
		}
		return fmt.Errorf("running %s: %w", p.binary, err)
	}
	return nil
}
