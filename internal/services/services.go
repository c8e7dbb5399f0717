// Package services holds the application's business logic. Services take
// repositories through their constructors and report failures as the
// sentinel errors declared next to them.
package services

import (
	"time"

	"github.com/yukikurage/project-board-api/internal/realtime"
)

var timeNow = time.Now

// Publisher receives realtime events. *realtime.Hub implements it.
type Publisher interface {
	Publish(msg realtime.Message)
}
