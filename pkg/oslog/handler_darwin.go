//go:build darwin

package oslog

/*
#cgo LDFLAGS: -framework Foundation
#include <os/log.h>
#include <stdlib.h>

static os_log_t inet_log = NULL;

static void inet_log_open(const char* subsystem, const char* category) {
    inet_log = os_log_create(subsystem, category);
}

static void inet_log_write(int level, const char* msg) {
    switch (level) {
    case 0:
        os_log_debug(inet_log, "%{public}s", msg);
        break;
    case 1:
        os_log_info(inet_log, "%{public}s", msg);
        break;
    case 2:
        os_log(inet_log, "%{public}s", msg);
        break;
    default:
        os_log_error(inet_log, "%{public}s", msg);
    }
}
*/
import "C"

import (
	"log/slog"
	"sync"
	"unsafe"
)

var openOnce sync.Once

// NewHandler returns a handler writing to the unified log under Subsystem.
func NewHandler(level slog.Leveler) slog.Handler {
	openOnce.Do(func() {
		cs := C.CString(Subsystem)
		cc := C.CString(Category)
		defer C.free(unsafe.Pointer(cs))
		defer C.free(unsafe.Pointer(cc))
		C.inet_log_open(cs, cc)
	})
	return newHandler(level, write)
}

func write(level slog.Level, msg string) {
	cmsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cmsg))

	var l C.int
	switch {
	case level >= slog.LevelError:
		l = 3
	case level >= slog.LevelWarn:
		l = 2
	case level >= slog.LevelInfo:
		l = 1
	}
	C.inet_log_write(l, cmsg)
}
