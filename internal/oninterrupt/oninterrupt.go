// Package oninterrupt runs registered cleanup handlers on SIGINT, so a
// driver can report which targets are left RUNNING before the process
// exits. Their state already persisted as RUNNING is picked up and
// retried on the next invocation — oninterrupt itself does no cleanup
// beyond invoking the handlers, named so the log can say which one ran.
package oninterrupt

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type namedHandler struct {
	name string
	fn   func()
}

var (
	onInterruptMu sync.Mutex
	onInterrupt   []namedHandler
)

func init() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		signal := <-c
		onInterruptMu.Lock()
		for _, h := range onInterrupt {
			log.Printf("repack: interrupted, running %q", h.name)
			h.fn()
		}
		onInterruptMu.Unlock()
		// TODO: replace by cancelling a context:
		// https://medium.com/@matryer/make-ctrl-c-cancel-the-context-context-bd006a8ad6ff
		if sig, ok := signal.(*syscall.Signal); ok {
			os.Exit(128 + int(*sig))
		}
		os.Exit(1) // generic EXIT_FAILURE
	}()
}

// Register adds cb, labeled name in the interrupt log line, to run when the
// process receives SIGINT.
func Register(name string, cb func()) {
	onInterruptMu.Lock()
	defer onInterruptMu.Unlock()
	onInterrupt = append(onInterrupt, namedHandler{name: name, fn: cb})
}
