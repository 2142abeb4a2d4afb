package cmd

import (
	"github.com/df07/go-pathtracer/pkg/output"
	"github.com/df07/go-pathtracer/web/server"
	"github.com/urfave/cli"
)

func s3Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "s3-bucket",
			Usage:  "upload renders to this bucket",
			EnvVar: "S3_BUCKET",
		},
		cli.StringFlag{
			Name:   "s3-region",
			Value:  "us-east-1",
			Usage:  "bucket region",
			EnvVar: "S3_REGION",
		},
		cli.StringFlag{
			Name:   "s3-endpoint",
			Usage:  "endpoint of an S3-compatible store",
			EnvVar: "S3_ENDPOINT",
		},
		cli.StringFlag{
			Name:   "s3-access-key",
			EnvVar: "S3_ACCESS_KEY",
		},
		cli.StringFlag{
			Name:   "s3-secret-key",
			EnvVar: "S3_SECRET_KEY",
		},
		cli.StringFlag{
			Name:   "s3-prefix",
			Value:  "renders",
			Usage:  "key prefix for uploaded renders",
			EnvVar: "S3_PREFIX",
		},
	}
}

func s3Config(ctx *cli.Context) output.S3Config {
	return output.S3Config{
		Bucket:    ctx.String("s3-bucket"),
		Region:    ctx.String("s3-region"),
		Endpoint:  ctx.String("s3-endpoint"),
		AccessKey: ctx.String("s3-access-key"),
		SecretKey: ctx.String("s3-secret-key"),
		Prefix:    ctx.String("s3-prefix"),
	}
}

// Serve runs the HTTP render API.
func Serve(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	srv := server.NewServer(ctx.Int("port"), ctx.String("scenes-dir"))
	if config := s3Config(ctx); config.Enabled() {
		uploader, err := output.NewS3Uploader(config)
		if err != nil {
			return err
		}
		srv.SetUploader(uploader)
		logger.Noticef("uploads enabled to bucket %s", config.Bucket)
	}

	return srv.Start()
}
