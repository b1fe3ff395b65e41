package service

import (
	"sync"
	"time"

	"PushOrShame/config"
	"PushOrShame/internal/cache"
	"PushOrShame/internal/queue"
	"PushOrShame/internal/repository"
	"PushOrShame/pkg/github"
	"PushOrShame/pkg/twitter"
	"PushOrShame/storage/database"
)

// 进程内单例，依赖 storage 包已经 Init

var (
	sharedStore *repository.Store
	storeOnce   sync.Once

	xClient     *twitter.Client
	xClientOnce sync.Once

	checkService *CheckService
	checkOnce    sync.Once

	participantService *ParticipantService
	participantOnce    sync.Once

	adHocService *AdHocService
	adHocOnce    sync.Once

	webhookService *WebhookService
	webhookOnce    sync.Once
)

func Store() *repository.Store {
	storeOnce.Do(func() {
		sharedStore = repository.NewStore(database.DB())
	})
	return sharedStore
}

// XClient 参与者发帖与服务账号汇总共用同一个客户端（共享限流和熔断）
func XClient() *twitter.Client {
	xClientOnce.Do(func() {
		xClient = twitter.NewClient(twitter.Config{
			BaseURL:       config.Cfg.XAPIBaseURL,
			RatePerSecond: config.Cfg.XRatePerSecond,
			Timeout:       config.Cfg.PostTimeout(),
		})
	})
	return xClient
}

func Check() *CheckService {
	checkOnce.Do(func() {
		verifier := github.NewClient(github.Config{
			BaseURL:       config.Cfg.GitHubAPIBaseURL,
			RatePerSecond: config.Cfg.GitHubRatePerSecond,
			PagesToScan:   config.Cfg.GitHubEventPagesToScan,
			Timeout:       config.Cfg.VerifyTimeout(),
		})

		checkService = NewCheckService(Store(), verifier, XClient(),
			CheckOptions{
				LockTTL:       config.Cfg.CheckLockTTL(),
				VerifyTimeout: config.Cfg.VerifyTimeout(),
				PostTimeout:   config.Cfg.PostTimeout(),
				CommitTimeout: 10 * time.Second,
			},
			WithLocker(cache.RedisLocker{}),
			WithPublisher(queue.Publisher{}),
			WithCommitHook(Participant().Invalidate),
		)
	})
	return checkService
}

func Participant() *ParticipantService {
	participantOnce.Do(func() {
		participantService = NewParticipantService(Store(), cache.StatsSnapshotCache)
	})
	return participantService
}

func AdHoc() *AdHocService {
	adHocOnce.Do(func() {
		adHocService = NewAdHocService(Store(), Check())
	})
	return adHocService
}

func Webhook() *WebhookService {
	webhookOnce.Do(func() {
		webhookService = NewWebhookService(Store(), cache.RealtimePushMarker{}, queue.Publisher{})
	})
	return webhookService
}
