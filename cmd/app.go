package cmd

import (
	"github.com/urfave/cli"
)

// NewApp builds the command line application
func NewApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "pathtracer"
	app.Usage = "render sphere scenes using Monte Carlo path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "log level (debug, info, notice, warning, error)",
			EnvVar: "PT_LOG_LEVEL",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene to an image file",
			Description: `
Render a built-in scene or a JSON scene file. Settings left at zero fall back
to the values suggested by the scene. The image format is chosen from the
output file extension (.png or .ppm).

When an S3 bucket is configured the PNG is uploaded as well.`,
			ArgsUsage: "[scene]",
			Flags:     append(renderFlags(), s3Flags()...),
			Action:    RenderScene,
		},
		{
			Name:   "scenes",
			Usage:  "list available scenes",
			Flags:  []cli.Flag{scenesDirFlag()},
			Action: ListScenes,
		},
		{
			Name:  "export",
			Usage: "write a scene as JSON",
			Description: `
Export a scene in the JSON scene format. Built-in scenes with random content
are generated from --seed, so the export pins down one instance of them.`,
			ArgsUsage: "scene",
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:  "seed",
					Value: 42,
					Usage: "seed for scenes with random content",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output file; stdout when empty",
				},
			},
			Action: ExportScene,
		},
		{
			Name:  "serve",
			Usage: "serve the render API over HTTP",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:   "port, p",
					Value:  8080,
					Usage:  "port to listen on",
					EnvVar: "PT_PORT",
				},
				scenesDirFlag(),
			}, s3Flags()...),
			Action: Serve,
		},
	}

	return app
}

func scenesDirFlag() cli.Flag {
	return cli.StringFlag{
		Name:   "scenes-dir",
		Value:  "scenes",
		Usage:  "directory containing JSON scene files",
		EnvVar: "PT_SCENES_DIR",
	}
}
