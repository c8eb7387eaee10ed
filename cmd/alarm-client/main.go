// Command alarm-client manages alarms on a running alarm-server.
package main

import "github.com/oshokin/alarm-clock/cmd/alarm-client/cmd"

func main() {
	cmd.Execute()
}
