// Package runtime provides panic-safe goroutine launchers and recovery
// helpers. A background goroutine that dies silently takes its work with
// it; these helpers log every panic with its stack and record it on the
// active span before the policy decides whether the process lives on.
package runtime

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/edupass/edupass-ledger/edupass/log"
)

// PanicPolicy decides what happens to the process after a panic is logged.
type PanicPolicy int

const (
	// KeepRunning recovers the panic and lets the goroutine die quietly.
	KeepRunning PanicPolicy = iota

	// CrashProcess re-panics after logging so the process fails loudly.
	CrashProcess
)

// logPanicWithStack logs a recovered panic value with its stack trace.
// A nil logger is safe.
func logPanicWithStack(logger log.Logger, operation string, panicValue any, stack []byte) {
	if logger == nil {
		return
	}

	logger.Log(context.Background(), log.LevelError,
		fmt.Sprintf("panic recovered in %s: %v", operation, panicValue),
		log.String("operation", operation),
		log.String("panic_value", fmt.Sprintf("%v", panicValue)),
		log.String("stack", string(stack)),
	)
}

func logPanic(logger log.Logger, operation string, panicValue any) {
	logPanicWithStack(logger, operation, panicValue, debug.Stack())
}

// handleRecovered logs the panic and records it on the span active in ctx.
func handleRecovered(ctx context.Context, logger log.Logger, panicValue any, component, operation string) {
	stack := debug.Stack()

	name := operation
	if component != "" {
		name = component + "/" + operation
	}

	if logger != nil {
		logger.Log(ctx, log.LevelError,
			fmt.Sprintf("panic recovered in %s: %v", name, panicValue),
			log.String("component", component),
			log.String("operation", operation),
			log.String("panic_value", fmt.Sprintf("%v", panicValue)),
			log.String("stack", string(stack)),
		)
	}

	RecordPanicToSpanWithComponent(ctx, panicValue, stack, component, operation)
}

// RecoverAndLog recovers a panic and logs it. Use as a deferred call.
func RecoverAndLog(logger log.Logger, operation string) {
	if r := recover(); r != nil {
		logPanic(logger, operation, r)
	}
}

// RecoverAndLogWithContext recovers a panic, logs it, and records it on the
// span active in ctx. Use as a deferred call.
func RecoverAndLogWithContext(ctx context.Context, logger log.Logger, component, operation string) {
	if r := recover(); r != nil {
		handleRecovered(ctx, logger, r, component, operation)
	}
}

// RecoverAndCrash logs a panic and then re-panics with the original value,
// preserving crash semantics while guaranteeing the panic is logged first.
func RecoverAndCrash(logger log.Logger, operation string) {
	if r := recover(); r != nil {
		logPanic(logger, operation, r)
		panic(r)
	}
}

// RecoverAndCrashWithContext is RecoverAndCrash with span recording.
func RecoverAndCrashWithContext(ctx context.Context, logger log.Logger, component, operation string) {
	if r := recover(); r != nil {
		handleRecovered(ctx, logger, r, component, operation)
		panic(r)
	}
}

// RecoverWithPolicy recovers a panic, logs it, and applies policy.
func RecoverWithPolicy(logger log.Logger, operation string, policy PanicPolicy) {
	if r := recover(); r != nil {
		logPanic(logger, operation, r)

		if policy == CrashProcess {
			panic(r)
		}
	}
}

// RecoverWithPolicyAndContext is RecoverWithPolicy with span recording.
func RecoverWithPolicyAndContext(ctx context.Context, logger log.Logger, component, operation string, policy PanicPolicy) {
	if r := recover(); r != nil {
		handleRecovered(ctx, logger, r, component, operation)

		if policy == CrashProcess {
			panic(r)
		}
	}
}

// HandlePanicValue logs and records an already-recovered panic value. It is
// for callers that run their own recover block, such as framework panic
// hooks. A nil panicValue is a no-op.
func HandlePanicValue(ctx context.Context, logger log.Logger, panicValue any, component, operation string) {
	if panicValue == nil {
		return
	}

	handleRecovered(ctx, logger, panicValue, component, operation)
}

// SafeGo launches fn on a new goroutine with panic recovery.
func SafeGo(logger log.Logger, operation string, policy PanicPolicy, fn func()) {
	go func() {
		defer RecoverWithPolicy(logger, operation, policy)

		fn()
	}()
}

// SafeGoWithContextAndComponent launches fn on a new goroutine with panic
// recovery, span recording, and a component tag for the log entry.
func SafeGoWithContextAndComponent(ctx context.Context, logger log.Logger, component, operation string, policy PanicPolicy, fn func(context.Context)) {
	go func() {
		defer RecoverWithPolicyAndContext(ctx, logger, component, operation, policy)

		fn(ctx)
	}()
}
