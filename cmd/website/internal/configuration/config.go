package configuration

import (
	"log/slog"

	"github.com/adampresley/configinator"
	"github.com/joho/godotenv"
)

type Config struct {
	AwsEndpointUrl      string `flag:"awsep" env:"AWS_ENDPOINT_URL" default:"http://localhost:4566" description:"AWS endpoint URL"`
	AwsRegion           string `flag:"awsregion" env:"AWS_REGION" default:"us-east-1" description:"AWS region"`
	AwsAccessKeyId      string `flag:"awsaccesskeyid" env:"AWS_ACCESS_KEY_ID" default:"" description:"AWS access key ID"`
	AwsSecretAccessKey  string `flag:"awssecretaccesskey" env:"AWS_SECRET_ACCESS_KEY" default:"" description:"AWS secret access key"`
	AwsBucket           string `flag:"awsbucket" env:"AWS_BUCKET" default:"" description:"S3 bucket for thumbnails. Thumbnails are kept in memory when empty"`
	BackendURL          string `flag:"backend" env:"BACKEND_URL" default:"http://localhost:8000" description:"Base URL of the picture API"`
	CookieSecret        string `flag:"cookiesecret" env:"COOKIE_SECRET" default:"password" description:"Secret for encoding cookies"`
	DSN                 string `flag:"dsn" env:"DSN" default:"file:./data/picturegallery.db" description:"Data source name for the activity journal"`
	Host                string `flag:"host" env:"HOST" default:"localhost:8081" description:"The address and port to bind the HTTP server to"`
	LogLevel            string `flag:"loglevel" env:"LOG_LEVEL" default:"debug" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	MaxThumbnailWorkers int    `flag:"mtw" env:"MAX_THUMBNAIL_WORKERS" default:"4" description:"Maximum number of concurrent thumbnail workers"`
	MaxUploadMB         int    `flag:"maxupload" env:"MAX_UPLOAD_MB" default:"64" description:"Largest multipart upload accepted, in megabytes"`
	RequestTimeout      int    `flag:"timeout" env:"REQUEST_TIMEOUT" default:"60" description:"Timeout in seconds for calls to the picture API"`
	RequestsPerSecond   int    `flag:"rps" env:"REQUESTS_PER_SECOND" default:"10" description:"Maximum calls per second to the picture API"`
	ThumbnailFolder     string `flag:"thumbfolder" env:"THUMBNAIL_FOLDER" default:"thumbnails" description:"S3 folder for thumbnails"`
	ThumbnailSize       int    `flag:"thumbsize" env:"THUMBNAIL_SIZE" default:"300" description:"Longest edge of a thumbnail, in pixels"`
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	config := Config{}
	configinator.Behold(&config)
	return config
}
