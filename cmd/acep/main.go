package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/bodgit/acep"
	"github.com/bodgit/acep/config"
	"github.com/bodgit/acep/dither"
	"github.com/bodgit/acep/palette"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	defaultDB     = "acep.db"
	defaultOutput = "latest_dithered.bmp"
)

var errNoHost = errors.New("no controller address, use --host or server_ip")

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

var renderFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "profile",
		Usage: "hardware profile",
	},
	&cli.StringFlag{
		Name:  "palette",
		Usage: "palette",
	},
	&cli.StringFlag{
		Name:  "method",
		Usage: "dithering method",
	},
	&cli.Float64Flag{
		Name:  "saturation",
		Usage: "saturation multiplier, 1 leaves colours unchanged",
	},
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	if c.Bool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func loadConfig(c *cli.Context) (config.File, error) {
	f, err := config.Load(c.String("config"))
	if err != nil {
		return f, err
	}

	// Flags win over the file
	if c.IsSet("profile") {
		f.HardwareProfile = c.String("profile")
	}
	if c.IsSet("palette") {
		f.Palette = c.String("palette")
	}
	if c.IsSet("method") {
		f.DitheringMethod = c.String("method")
	}
	if c.IsSet("saturation") {
		s := c.Float64("saturation")
		f.Saturation = &s
	}
	if c.IsSet("host") {
		f.ServerIP = c.String("host")
	}
	if c.IsSet("db") || f.Database == "" {
		f.Database = c.String("db")
	}
	return f, nil
}

func newPanel(c *cli.Context, logger *logrus.Logger) (*acep.Panel, config.File, func(), error) {
	f, err := loadConfig(c)
	if err != nil {
		return nil, f, nil, err
	}

	opts, err := f.Options(palette.NewRegistry(), logger)
	if err != nil {
		return nil, f, nil, err
	}

	h, err := acep.NewHistory(f.Database)
	if err != nil {
		return nil, f, nil, err
	}

	return acep.New(opts, h, logger), f, func() { h.Close() }, nil
}

func output(c *cli.Context, f config.File, n int) string {
	if c.NArg() > n {
		return c.Args().Get(n)
	}
	if f.Output != "" {
		return f.Output
	}
	return defaultOutput
}

func convert(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	p, f, done, err := newPanel(c, logger)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	dst := output(c, f, 1)
	_, id, err := p.Convert(c.Args().First(), dst)
	if err != nil {
		return cli.Exit(err, 1)
	}

	logger.WithFields(logrus.Fields{
		"output": dst,
		"render": id,
	}).Info("Converted image")

	return nil
}

func push(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	p, f, done, err := newPanel(c, logger)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	if f.ServerIP == "" {
		return cli.Exit(errNoHost, 1)
	}

	// The bitmap is kept even if the upload fails so it can be served locally
	q, id, err := p.Convert(c.Args().First(), output(c, f, 1))
	if err != nil {
		return cli.Exit(err, 1)
	}

	// Only the per-request timeout and retry budget bound the upload
	res, err := p.Push(context.Background(), f.ServerIP, q, id)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if res.ShowErr != nil {
		logger.WithError(res.ShowErr).Warn("Image delivered but the panel did not confirm the refresh")
	}

	return nil
}

func batch(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	p, _, done, err := newPanel(c, newLogger(c))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer done()

	if err := p.Batch(c.Args().First(), c.String("out"), c.Int("workers")); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func palettes(c *cli.Context) error {
	r := palette.NewRegistry()
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "PALETTE\tCOLOURS")
	for _, tag := range r.Tags() {
		p, err := r.Lookup(tag)
		if err != nil {
			return cli.Exit(err, 1)
		}
		colors := make([]string, 0, p.Len())
		for i := 0; i < p.Len(); i++ {
			e := p.At(i)
			colors = append(colors, fmt.Sprintf("#%02x%02x%02x", e.R, e.G, e.B))
		}
		fmt.Fprintf(w, "%s\t%s\n", tag, strings.Join(colors, " "))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "PROFILE\tSIZE\tPALETTE\tMETHOD\tINIT")
	for _, profile := range r.Profiles() {
		fmt.Fprintf(w, "%s\t%dx%d\t%s\t%s\t%s\n", profile.Name, profile.Width, profile.Height, profile.Palette, profile.Method, profile.InitCommand)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "METHODS\t%s\n", strings.Join(dither.Names(), " "))

	return w.Flush()
}

func analyze(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	f, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	opts, err := f.Options(palette.NewRegistry(), logger)
	if err != nil {
		return cli.Exit(err, 1)
	}

	m, err := acep.LoadImage(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "COLOUR\tSHARE\t%s\tDISTANCE\n", strings.ToUpper(opts.Palette.Name()))
	for _, s := range acep.Analyze(m, opts.Palette, c.Int("colors")) {
		e := opts.Palette.At(s.Index)
		fmt.Fprintf(w, "#%02x%02x%02x\t%5.1f%%\t%d #%02x%02x%02x\t%.1f\n", s.Color.R, s.Color.G, s.Color.B, s.Share*100, s.Index, e.R, e.G, e.B, s.Distance)
	}

	return w.Flush()
}

func history(c *cli.Context) error {
	f, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	h, err := acep.NewHistory(f.Database)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer h.Close()

	renders, err := h.Renders(c.Int("limit"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPROFILE\tPALETTE\tMETHOD\tSIZE\tUPLOADS")
	for _, r := range renders {
		uploads, err := h.Uploads(r.ID)
		if err != nil {
			return cli.Exit(err, 1)
		}
		var ok int
		for _, u := range uploads {
			if u.OK {
				ok++
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%dx%d\t%d/%d\n", r.ID, r.Created.Format("2006-01-02 15:04:05"), r.Profile, r.Palette, r.Method, r.Width, r.Height, ok, len(uploads))
	}

	return w.Flush()
}

func inspect(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	f, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	size := f.ChunkSize
	if c.IsSet("chunk-size") {
		size = c.Int("chunk-size")
	}

	info, err := acep.Inspect(c.Args().First(), size)
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "File\t%s\n", filepath.Base(c.Args().First()))
	fmt.Fprintf(w, "Size\t%dx%d\n", info.Width, info.Height)
	fmt.Fprintf(w, "Bytes\t%d\n", info.Bytes)
	fmt.Fprintf(w, "Chunks\t%d (%d characters)\n", info.Chunks, info.Length)
	for i, n := range info.Used {
		if n > 0 {
			fmt.Fprintf(w, "Index %d\t%d pixels\n", i, n)
		}
	}

	return w.Flush()
}

func main() {
	app := cli.NewApp()

	app.Name = "acep"
	app.Usage = "Colour e-paper image preparation and upload utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		logrus.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"ACEP_CONFIG"},
			Usage:   "path to configuration file",
		},
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"ACEP_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to history database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Dither an image into an indexed bitmap",
			Description: "",
			ArgsUsage:   "IMAGE [OUTPUT]",
			Flags:       renderFlags,
			Action:      convert,
		},
		{
			Name:        "push",
			Usage:       "Dither an image and upload it to the panel",
			Description: "",
			ArgsUsage:   "IMAGE [OUTPUT]",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "host",
					Usage: "controller address, overrides server_ip",
				},
			}, renderFlags...),
			Action: push,
		},
		{
			Name:        "batch",
			Usage:       "Dither every image in a directory",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "out",
					Usage: "output directory",
				},
				&cli.IntFlag{
					Name:  "workers",
					Value: acep.DefaultWorkers,
					Usage: "number of concurrent conversions",
				},
			}, renderFlags...),
			Action: batch,
		},
		{
			Name:   "palettes",
			Usage:  "List palettes, hardware profiles and dithering methods",
			Action: palettes,
		},
		{
			Name:      "analyze",
			Usage:     "Compare the dominant colours of an image with the palette",
			ArgsUsage: "IMAGE",
			Flags: append([]cli.Flag{
				&cli.IntFlag{
					Name:  "colors",
					Value: acep.DefaultSwatches,
					Usage: "number of dominant colours",
				},
			}, renderFlags...),
			Action: analyze,
		},
		{
			Name:  "history",
			Usage: "List recent renders and their uploads",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Value: 20,
					Usage: "number of renders to show",
				},
			},
			Action: history,
		},
		{
			Name:      "inspect",
			Usage:     "Describe a bitmap and how it would be uploaded",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "chunk-size",
					Usage: "characters per upload chunk",
				},
			},
			Action: inspect,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
