package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/repository"
	"github.com/maheshrc27/captionflow/internal/service"
)

const (
	refreshWindow    = 30 * time.Minute
	concurrencyLimit = 10
)

type TokenRefreshJob struct {
	tc repository.TiktokConnectionRepository
	tt service.TiktokService
}

func NewTokenRefreshJob(tc repository.TiktokConnectionRepository, tt service.TiktokService) *TokenRefreshJob {
	return &TokenRefreshJob{
		tc: tc,
		tt: tt,
	}
}

// RefreshTokens refreshes every TikTok token expiring in the next 30 minutes.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	conns, err := c.tc.ListByTimeInterval(ctx, currentTime, currentTime.Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, conn := range conns {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(conn *models.TiktokConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.tt.RefreshConnection(ctx, conn); err != nil {
				slog.Error("unable to refresh tiktok token", "user_id", conn.UserID, "error", err)
			}
		}(conn)
	}

	wg.Wait()
}
