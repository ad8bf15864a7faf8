package boot

import "github.com/moffa90/go-fsbl/status"

// Progress describes the boot sequence each time a stage is entered.
// Passed to ProgressCallback.
type Progress struct {
	// Stage is the stage about to run
	Stage Stage

	// Partition is the partition about to load. Only meaningful in
	// StagePartitionLoad.
	Partition int

	// Partitions is the partition count, the loader included. Zero until
	// the image header table has been read.
	Partitions int

	// Status is the code reported by the previous stage
	Status status.Code
}

// ProgressCallback is called on every stage entry.
// Implementations should return quickly; the boot does not continue until it does.
//
// Example:
//
//	m := boot.New(regs, mem, cpu,
//	    boot.WithProgressCallback(func(p boot.Progress) {
//	        fmt.Printf("[%s] partition %d/%d\n", p.Stage, p.Partition, p.Partitions)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the machine.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	m := boot.New(regs, mem, cpu, boot.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
