package lisp

import (
	"github.com/tliron/commonlog"
)

var (
	gcLog   = commonlog.GetLogger("lispcore.gc")
	rootLog = commonlog.GetLogger("lispcore.root")
)

// fatal logs err at critical level and panics with a *FatalError.
func fatal(err error) {
	gcLog.Critical("fatal", "error", err.Error())
	panic(&FatalError{Err: err})
}

func (cx *Context) fatal(err error) {
	cx.log.Critical("fatal", "error", err.Error(), "epoch", cx.epoch, "objects", len(cx.heap))
	panic(&FatalError{Err: err})
}
