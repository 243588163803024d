/*
Copyright 2024 TGFC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tgfc/fanops"
	"github.com/tgfc/fanops/api/middleware"
	"github.com/tgfc/fanops/config"
)

type Api struct {
	fanops *fanops.Fanops
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	// Webhook receivers acknowledge once logged; processing outcomes live in
	// the ledger, not the response code.
	router.POST("/webhooks/shopify", a.ReceiveShopifyWebhook)
	router.POST("/webhooks/graph", a.ReceiveGraphWebhook)
	router.GET("/webhook-events/failed", a.ListFailedWebhookEvents)
	router.POST("/webhook-events/:id/replay", a.ReplayWebhookEvent)

	router.POST("/orders/import", a.ImportOrder)

	router.GET("/work-items/:id", a.GetWorkItem)
	router.GET("/work-items/:id/events", a.GetWorkItemEvents)
	router.POST("/work-items/:id/transition", a.TransitionWorkItem)
	router.POST("/work-items/:id/follow-up", a.MarkFollowedUp)
	router.POST("/work-items/:id/snooze", a.SnoozeWorkItem)
	router.POST("/work-items/:id/waiting", a.SetWaiting)
	router.GET("/follow-ups/due", a.ListFollowUpsDue)

	router.GET("/emails/untriaged", a.ListUntriagedEmails)
	router.POST("/emails/:id/link", a.LinkEmail)
	router.POST("/emails/:id/unlink", a.UnlinkEmail)
	router.POST("/emails/:id/archive", a.ArchiveEmail)
	router.POST("/emails/cleanup-duplicates", a.CleanupDuplicates)

	router.POST("/domain-filters", a.CreateDomainFilter)
	router.GET("/domain-filters", a.GetAllDomainFilters)
	router.DELETE("/domain-filters/:id", a.DeleteDomainFilter)

	return a.router
}

func NewAPI(f *fanops.Fanops) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{fanops: f, router: r}
}
