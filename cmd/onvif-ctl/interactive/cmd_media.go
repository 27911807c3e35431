package interactive

import (
	"context"
	"fmt"

	"github.com/nvtkit/onvif-go/pkg/media"
)

// defaultProfile returns the cached profile token, fetching the profile
// listing on first use.
func (c *Console) defaultProfile(ctx context.Context) (string, error) {
	if c.profile != "" {
		return c.profile, nil
	}

	m, err := c.sess.Media()
	if err != nil {
		return "", err
	}
	profiles, err := m.Profiles(ctx)
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 {
		return "", fmt.Errorf("device has no media profiles")
	}
	c.profile = profiles[0].Token
	return c.profile, nil
}

// cmdProfiles handles the profiles command.
func (c *Console) cmdProfiles(ctx context.Context) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	m, err := sess.Media()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	profiles, err := m.Profiles(opCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if len(profiles) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No media profiles")
		return
	}
	if c.profile == "" {
		c.profile = profiles[0].Token
	}

	fmt.Fprintf(c.rl.Stdout(), "\nMedia Profiles (%d):\n", len(profiles))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, p := range profiles {
		marker := " "
		if p.Token == c.profile {
			marker = "*"
		}
		fmt.Fprintf(c.rl.Stdout(), "%s %s (%s)\n", marker, p.Token, p.Name)
		if enc := p.VideoEncoder; enc != nil {
			fmt.Fprintf(c.rl.Stdout(), "      Encoder: %s %dx%d",
				enc.Encoding, enc.Resolution.Width, enc.Resolution.Height)
			if rc := enc.RateControl; rc != nil {
				fmt.Fprintf(c.rl.Stdout(), " @ %d fps, %d kbps",
					rc.FrameRateLimit, rc.BitrateLimit)
			}
			fmt.Fprintln(c.rl.Stdout())
		}
		if src := p.VideoSource; src != nil {
			fmt.Fprintf(c.rl.Stdout(), "      Source:  %s (%dx%d)\n",
				src.SourceToken, src.Bounds.Width, src.Bounds.Height)
		}
	}
	fmt.Fprintln(c.rl.Stdout())
}

// profileArg resolves the profile argument, falling back to the default.
func (c *Console) profileArg(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return c.defaultProfile(ctx)
}

// cmdSnapshot handles the snapshot command.
func (c *Console) cmdSnapshot(ctx context.Context, args []string) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	token, err := c.profileArg(opCtx, args)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	m, err := sess.Media()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	uri, err := m.SnapshotURI(opCtx, token)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "%s\n", uri)
}

// cmdStream handles the stream command.
func (c *Console) cmdStream(ctx context.Context, args []string) {
	sess := c.session()
	if sess == nil {
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	token, err := c.profileArg(opCtx, args)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	m, err := sess.Media()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	uri, err := m.StreamURI(opCtx, token, media.StreamRTPUnicast)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "%s\n", uri)
}

// cmdImaging handles the imaging command.
func (c *Console) cmdImaging(ctx context.Context, args []string) {
	sess := c.session()
	if sess == nil {
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: imaging <video-source-token>")
		return
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	img, err := sess.Imaging()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	settings, err := img.Settings(opCtx, args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nImaging Settings (%s):\n", args[0])
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	printSetting(c, "Brightness", settings.Brightness)
	printSetting(c, "Contrast", settings.Contrast)
	printSetting(c, "Saturation", settings.ColorSaturation)
	printSetting(c, "Sharpness", settings.Sharpness)
	if settings.Exposure != nil {
		fmt.Fprintf(c.rl.Stdout(), "  Exposure:      %s\n", settings.Exposure.Mode)
	}
	if settings.Focus != nil {
		fmt.Fprintf(c.rl.Stdout(), "  Focus:         %s\n", settings.Focus.AutoFocusMode)
	}
	if settings.WhiteBalance != nil {
		fmt.Fprintf(c.rl.Stdout(), "  White balance: %s\n", settings.WhiteBalance.Mode)
	}
	fmt.Fprintln(c.rl.Stdout())
}

func printSetting(c *Console, name string, value *float64) {
	if value == nil {
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "  %-14s %g\n", name+":", *value)
}
