package cmd

import (
	"bytes"
	"io"
	"os"

	"github.com/df07/go-pathtracer/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// ListScenes prints the built-in and file scenes as a table.
func ListScenes(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	response, err := scene.ListAllScenes(ctx.String("scenes-dir"))
	if err != nil {
		return err
	}

	writeSceneTable(os.Stdout, response)
	return nil
}

func writeSceneTable(w io.Writer, response scene.ScenesResponse) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Name", "Group", "Description"})
	for _, group := range response.Groups {
		for _, info := range group.Scenes {
			table.Append([]string{info.ID, info.DisplayName, group.Name, info.Description})
		}
	}

	table.Render()
	buf.WriteTo(w)
}

// ExportScene writes a scene in the JSON scene format.
func ExportScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sc, err := loadScene(ctx.Args().First(), ctx.Int64("seed"))
	if err != nil {
		return err
	}

	outPath := ctx.String("out")
	if outPath == "" {
		return scene.Encode(os.Stdout, sc)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err = scene.Encode(file, sc); err != nil {
		return err
	}
	logger.Noticef("exported %q (%d spheres) to %s", sc.Name, sc.World.Len(), outPath)
	return nil
}
