// Command notiflow runs notification jobs declared in a configuration file.
package main

import "github.com/drblury/notiflow/internal/cmd"

func main() {
	cmd.Execute()
}
