// Package plugins registers every built-in source, destination, formatter and filterer.
package plugins

import (
	_ "github.com/drblury/notiflow/plugin/aws"
	_ "github.com/drblury/notiflow/plugin/channel"
	_ "github.com/drblury/notiflow/plugin/console"
	_ "github.com/drblury/notiflow/plugin/filterers"
	_ "github.com/drblury/notiflow/plugin/formatters"
	_ "github.com/drblury/notiflow/plugin/http"
	_ "github.com/drblury/notiflow/plugin/io"
	_ "github.com/drblury/notiflow/plugin/jetstream"
	_ "github.com/drblury/notiflow/plugin/kafka"
	_ "github.com/drblury/notiflow/plugin/nats"
	_ "github.com/drblury/notiflow/plugin/rabbitmq"
	_ "github.com/drblury/notiflow/plugin/smtp"
	_ "github.com/drblury/notiflow/plugin/sql"
)
