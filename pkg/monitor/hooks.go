package monitor

import (
	"context"
	"log"
	"os/exec"
	"time"
)

const hookTimeout = 30 * time.Second

// runHook fires an optional external script in the background. Hook
// failures are logged and never affect the tick.
func (m *Manager) runHook(path string) {
	if path == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(m.ctx, hookTimeout)
		defer cancel()
		out, err := exec.CommandContext(ctx, path).CombinedOutput()
		if err != nil {
			log.Printf("Error running hook %s: %s (%s)", path, err.Error(), string(out))
			return
		}
		log.Printf("Hook %s finished", path)
	}()
}
