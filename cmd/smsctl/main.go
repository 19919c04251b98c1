/*
Smsctl inspects and edits the records of a school management entity store.

Usage:

	smsctl [flags] COMMAND [args]

The commands are:

	seed                    write default profile, classes, subjects, and TLM
	                        categories into any of those collections still empty
	types                   list the entity types with data, their record counts
	                        and stored sizes
	list TYPE               print every record of TYPE as JSON
	get TYPE ID             print one record
	create TYPE JSON        create a record from a JSON object
	update TYPE ID JSON     merge a JSON object into an existing record
	delete TYPE ID...       delete one or more records
	clear TYPE | --all      remove a whole collection, or every collection
	report finance          print an income and expense summary

The flags are:

	-c, --config PATH
		Load configuration from the given JSON or YAML file. If not given, only
		defaults and environment variables are used.

	--storage CONN
		Use the given storage connection string instead of the configured one,
		e.g. "inmem", "sqlite:./data", or "file:dir=./data,file=sms.kvf".

	--env-file PATH
		Read environment variables from the given dotenv file before applying
		them to the config. Defaults to ".env"; a missing file is ignored.

	-v, --verbose
		Log store operations to stderr.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

const (
	exitSuccess   = 0
	exitError     = 1
	exitPanic     = 2
	exitInterrupt = 3
)

var exitCode int

func main() {
	ctx, cancelMainContext := context.WithCancel(context.Background())
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	defer func() {
		signal.Stop(signalChan)
		cancelMainContext()
	}()
	go func() {
		select {
		case <-signalChan: // first signal, cancel context
			cancelMainContext()
		case <-ctx.Done():
		}

		<-signalChan // second signal, hard exit
		os.Exit(exitInterrupt)
	}()

	defer func() {
		if panicErr := recover(); panicErr != nil {
			fmt.Fprintf(os.Stderr, "fatal panic: %v\n", panicErr)
			exitCode = exitPanic
		}
		os.Exit(exitCode)
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		exitCode = exitError
		if ctx.Err() != nil {
			exitCode = exitInterrupt
		}
		return
	}
	exitCode = exitSuccess
}
