// Package notiflow routes notifications from data sources to destinations.
//
// A YAML configuration declares sources (for example SQL queries returning data check
// results), destinations (console, SMTP, files, Kafka, RabbitMQ, NATS, JetStream, AWS
// SNS/SQS, HTTP webhooks, in-process channels), message groups that fan a batch out to
// several receivers, and jobs that tie them together. Every receiver can set a minimum level,
// a formatter and any number of filterers.
//
// Load instantiates the configuration through the plugin registry, NewRunner wraps it and
// Runner.RunAll executes jobs in declaration order:
//
//	cfg, err := notiflow.Load(ctx, "notiflow.yaml")
//	if err != nil {
//		return err
//	}
//	defer cfg.Close()
//	r, err := notiflow.NewRunner(cfg)
//	if err != nil {
//		return err
//	}
//	results, err := r.RunAll(ctx)
//
// # Plugins
//
// Built-in components register under the "notiflow." namespace when their package is
// imported; import github.com/drblury/notiflow/plugin/plugins to get all of them. Short class
// names in a configuration resolve against that namespace. Custom components register with
// RegisterSource, RegisterDestination, RegisterFormatter and RegisterFilterer, or are loaded
// at runtime from the custom_modules paths of a configuration.
//
// # Command line
//
// cmd/notiflow wraps the same API: "notiflow run [jobs...]", "notiflow validate" and
// "notiflow plugins".
package notiflow
