// Package lib provides a Go SDK to run tasklib tasks programmatically.
//
// This package allows applications to run the tasks of a task library and query
// their status, reports and run history without shelling out to the tasklib CLI
// binary. The state is shared with the CLI, a task run with the SDK can be queried
// with `tasklib status` and the other way around.
//
// # Quick Start
//
// Create a client and run a task:
//
//	client, err := lib.New(ctx, lib.Config{
//	    TasksDirectory: "/etc/tasks",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.RunTask(ctx, "deploy")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Status, res.Code)
//
// # In memory mode
//
// Set [Config].InMemory to keep the state and run history in memory, and
// [Config].Tasks to serve the task definitions without a library directory.
// Useful for testing:
//
//	client, err := lib.New(ctx, lib.Config{
//	    InMemory: true,
//	    Tasks: []lib.TaskDefinition{
//	        {ID: "hello", Type: "shell", Parameters: map[string]any{"cmd": "echo hello"}},
//	    },
//	})
//
// # Detached runs
//
// Background runs re-execute the tasklib binary, they are only available through
// the CLI `daemon` command. The SDK reports their pid and liveness with
// [Client.TaskStatus].
//
// # Errors
//
// The SDK returns sentinel errors that can be checked with [errors.Is]:
//
//   - [ErrNotFound]: The task is not in the library.
//   - [ErrNotValid]: The task definition or the request is invalid.
//   - [ErrAlreadyRunning]: The task has a live detached run.
package lib
