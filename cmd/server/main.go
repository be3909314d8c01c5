/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vgoto/gormx"
	"github.com/vogo/vgoto/natsx"
	"github.com/vogo/vgoto/redisx"
	"github.com/vogo/vogo/vlog"
	"github.com/vogo/vogo/vos"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

// ShortLinkServer short link server, using gormx's repo and redisx's caches, filter and locks
type ShortLinkServer struct {
	*cores.ShortLinkService
	redisClient *redis.Client
}

// NewShortLinkServer create short link server
func NewShortLinkServer(
	db *gorm.DB,
	redisClient *redis.Client,
	sink cores.StatsSink,
	opts ...cores.ServiceOption,
) *ShortLinkServer {
	repo := gormx.NewGormShortLinkRepository(db)

	cache := redisx.NewGotoCache(redisClient)
	nullCache := redisx.NewGotoNullCache(redisClient)

	filter := redisx.NewRedisBloomFilter(redisClient,
		vos.GetEnvStr("BLOOM_KEY", redisx.DefaultBloomKey),
		uint64(vos.GetEnvInt64("BLOOM_EXPECTED_INSERTIONS", redisx.DefaultBloomExpectedInsertion)),
		redisx.DefaultBloomFalsePositiveRate)

	locker := redisx.NewRedisLocker(redisClient)

	recorder := cores.NewStatsRecorder(redisx.NewRedisVisitorSet(redisClient, ""), sink)

	opts = append(opts, cores.WithStatsRecorder(recorder))

	return &ShortLinkServer{
		ShortLinkService: cores.NewShortLinkService(repo, cache, nullCache, filter, locker, opts...),
		redisClient:      redisClient,
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		vlog.Warnf("load .env failed: %v", err)
	}

	mysqlHost := vos.GetEnvStr("MYSQL_HOST", "localhost")
	mysqlPort := vos.GetEnvStr("MYSQL_PORT", "3306")
	mysqlUser := vos.GetEnvStr("MYSQL_USER", "root")
	mysqlPassword := vos.GetEnvStr("MYSQL_PASSWORD", "")
	mysqlDatabase := vos.GetEnvStr("MYSQL_DATABASE", "vgoto")
	autoMigrate := vos.GetEnvStr("MYSQL_AUTO_MIGRATE", "false") == "true"

	redisHost := vos.GetEnvStr("REDIS_HOST", "localhost")
	redisPort := vos.GetEnvStr("REDIS_PORT", "6379")
	redisPassword := vos.GetEnvStr("REDIS_PASSWORD", "")
	redisDB := vos.GetEnvInt("REDIS_DB", 0)

	serverPort := vos.GetEnvStr("SERVER_PORT", "8001")
	domain := vos.GetEnvStr("SHORT_LINK_DOMAIN", "nurl.ink:8001")
	authToken := vos.GetEnvStr("AUTH_TOKEN", "")
	notFoundPage := vos.GetEnvStr("NOT_FOUND_PAGE", "/page/notfound")
	maxCodeLength := vos.GetEnvInt("MAX_CODE_LENGTH", cores.DefaultMaxCodeLength)
	whitelistFile := vos.GetEnvStr("WHITELIST_FILE", "")

	localCacheSize := vos.GetEnvInt("LOCAL_CACHE_SIZE", 10000)
	localCacheTTL := time.Duration(vos.GetEnvInt64("LOCAL_CACHE_TTL_SECONDS", 60)) * time.Second

	createQPS := vos.GetEnvInt("FLOW_CREATE_QPS", cores.DefaultCreateQPS)
	redirectQPS := vos.GetEnvInt("FLOW_REDIRECT_QPS", cores.DefaultRedirectQPS)

	statsSink := vos.GetEnvStr("STATS_SINK", "redis")
	natsURL := vos.GetEnvStr("NATS_URL", nats.DefaultURL)
	consumerName := vos.GetEnvStr("STATS_CONSUMER", hostname())

	mysqlDSN := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		mysqlUser, mysqlPassword, mysqlHost, mysqlPort, mysqlDatabase)

	db, err := gorm.Open(mysql.Open(mysqlDSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		vlog.Fatalf("failed to connect to mysql: %v", err)
	}

	if autoMigrate {
		if err = gormx.AutoMigrate(db); err != nil {
			vlog.Fatalf("failed to migrate tables: %v", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err = redisClient.Ping(ctx).Result(); err != nil {
		vlog.Fatalf("failed to ping redis: %v", err)
	}

	opts := []cores.ServiceOption{
		cores.WithDomain(domain),
		cores.WithAuthToken(authToken),
		cores.WithNotFoundPage(notFoundPage),
		cores.WithMaxCodeLength(maxCodeLength),
		cores.WithLocalCache(localCacheSize, localCacheTTL),
		cores.WithFlowRules(cores.NewFlowRules(createQPS, cores.DefaultCreateMaxQueue, redirectQPS)),
	}

	if whitelistFile != "" {
		whitelist, loadErr := cores.LoadWhitelist(whitelistFile)
		if loadErr != nil {
			vlog.Fatalf("failed to load whitelist: %v", loadErr)
		}
		opts = append(opts, cores.WithWhitelist(whitelist))
	}

	var (
		sink      cores.StatsSink
		startStat func(handler redisx.StatsHandler)
	)

	switch statsSink {
	case "nats":
		nc, connErr := nats.Connect(natsURL, nats.MaxReconnects(-1), nats.ReconnectWait(time.Second))
		if connErr != nil {
			vlog.Fatalf("failed to connect to nats: %v", connErr)
		}
		defer nc.Drain()

		js, jsErr := nc.JetStream()
		if jsErr != nil {
			vlog.Fatalf("failed to open jetstream: %v", jsErr)
		}

		if err = natsx.EnsureStatsStream(js, natsx.DefaultStatsStreamName, natsx.DefaultStatsSubject); err != nil {
			vlog.Fatalf("failed to ensure stats stream: %v", err)
		}

		sink = natsx.NewJetStreamStatsSink(js, natsx.DefaultStatsSubject)
		startStat = func(handler redisx.StatsHandler) {
			if _, subErr := natsx.SubscribeStats(js, natsx.DefaultStatsSubject, natsx.DefaultStatsQueue, consumerName, handler); subErr != nil {
				vlog.Fatalf("failed to subscribe stats: %v", subErr)
			}
		}
	default:
		sink = redisx.NewStreamStatsSink(redisClient, redisx.DefaultStatsStream, 0)
		startStat = func(handler redisx.StatsHandler) {
			consumer := redisx.NewStreamStatsConsumer(redisClient, redisx.DefaultStatsStream, redisx.DefaultStatsGroup, consumerName, handler)
			go func() {
				if runErr := consumer.Run(ctx); runErr != nil {
					vlog.Errorf("stats stream consumer stopped: %v", runErr)
				}
			}()
		}
	}

	service := NewShortLinkServer(db, redisClient, sink, opts...)
	startStat(service.ConsumeVisit)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: http.HandlerFunc(service.HttpHandle),
	}

	go func() {
		vlog.Infof("server listen at %s, domain: %s, stats sink: %s", server.Addr, domain, statsSink)
		if listenErr := server.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			vlog.Fatalf("server stopped: %v", listenErr)
		}
	}()

	<-ctx.Done()
	vlog.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		vlog.Errorf("server shutdown failed: %v", err)
	}

	service.Stop()

	if err = service.redisClient.Close(); err != nil {
		vlog.Errorf("close redis failed: %v", err)
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "vgoto"
	}
	return name
}
