package interactive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nvtkit/onvif-go/pkg/ptz"
)

// cmdMove handles the move command.
func (c *Console) cmdMove(ctx context.Context, args []string) {
	sess := c.session()
	if sess == nil {
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: move <pan> <tilt> [zoom]")
		fmt.Fprintln(c.rl.Stdout(), "  Speeds are normalized to -1..1, 'move 0.5 0' pans right")
		return
	}

	pan, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid pan speed: %v\n", err)
		return
	}
	tilt, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid tilt speed: %v\n", err)
		return
	}

	v := ptz.Velocity{PanTilt: &ptz.Vector2D{X: pan, Y: tilt}}
	if len(args) > 2 {
		zoom, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid zoom speed: %v\n", err)
			return
		}
		v.Zoom = &ptz.Vector1D{X: zoom}
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	token, err := c.defaultProfile(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	p, err := sess.PTZ()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := p.ContinuousMove(opCtx, token, v); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Move failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Moving ('stop' ends the motion)")
}

// cmdStop handles the stop command.
func (c *Console) cmdStop(ctx context.Context) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	token, err := c.defaultProfile(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	p, err := sess.PTZ()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := p.Stop(opCtx, token, true, true); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Stop failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Stopped")
}
