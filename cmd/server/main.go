package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"amity-social/internal/consumer"
	"amity-social/internal/converter"
	"amity-social/internal/dao"
	"amity-social/internal/handler"
	"amity-social/internal/model"
	"amity-social/internal/service"
	"amity-social/pkg/lifecycle"
	"amity-social/pkg/server"
	"amity-social/pkg/snowflake"
	"amity-social/pkg/telemetry"
)

func main() {
	serviceName := "amity-social"

	// 初始化OpenTelemetry
	var otelConfig *telemetry.Config
	if os.Getenv("OTEL_DEBUG") == "true" {
		otelConfig = telemetry.DevelopmentConfig(serviceName)
		log.Printf("OpenTelemetry debug mode enabled - traces will be printed to console")
	} else {
		otelConfig = telemetry.DefaultConfig(serviceName)
	}

	if err := telemetry.InitGlobal(otelConfig); err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.ShutdownGlobal(ctx); err != nil {
			log.Printf("Failed to shutdown OpenTelemetry: %v", err)
		}
	}()

	if err := snowflake.InitGlobalSnowflake(1); err != nil {
		log.Fatalf("Failed to initialize snowflake: %v", err)
	}

	// 创建应用程序
	app := server.NewApplication(serviceName)
	app.EnableHTTP()

	// 自动迁移数据库表结构
	postgreSQL := app.GetPostgreSQL()
	if err := postgreSQL.AutoMigrate(
		&model.User{},
		&model.Friendship{},
	); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// 初始化DAO层
	relationshipDAO := dao.NewRelationshipDAO(postgreSQL)
	userDAO := dao.NewUserDAO(postgreSQL)
	messageDAO := dao.NewMessageDAO(app.GetMongoDB().GetDatabase())

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := messageDAO.EnsureIndexes(migrateCtx); err != nil {
		migrateCancel()
		panic("Failed to ensure message indexes: " + err.Error())
	}
	migrateCancel()

	// 搜索是可降级能力，ES缺席时searchDAO为nil
	var searchDAO dao.SearchDAO
	if es := app.GetElasticSearch(); es != nil {
		searchDAO = dao.NewSearchDAO(es.GetClient(), app.GetLogger())
	}

	// 初始化Service层
	friendSet := service.NewRedisFriendSet(app.GetRedisClient())
	friendshipService := service.NewFriendshipService(relationshipDAO, userDAO, friendSet, app.GetKafkaProducer(), app.GetLogger())
	aggregator := service.NewConversationAggregator(messageDAO, userDAO, app.GetLogger())
	messagingService := service.NewMessagingService(messageDAO, userDAO, friendshipService, aggregator, searchDAO, app.GetKafkaProducer(), app.GetLogger())
	userService := service.NewUserService(userDAO, app.GetJWTConfig(), app.GetLogger())

	// 初始化Converter和Handler层
	conv := converter.NewConverter()
	httpHandler := handler.NewHTTPHandler(friendshipService, messagingService, userService, conv, app.GetLogger())

	app.RegisterHTTPRoutes(func(engine *gin.Engine) {
		httpHandler.RegisterRoutes(engine)
	})

	// 搜索索引消费者，兜底发送链路的同步索引写失败
	if searchDAO != nil && app.GetKafkaProducer() != nil {
		indexConsumer := consumer.NewIndexConsumer(messageDAO, searchDAO, app.GetLogger())
		brokers := app.GetConfig().Kafka.Brokers
		app.AddLifecycleHook(lifecycle.Hook{
			Name:     "index-consumer",
			Priority: 300,
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := indexConsumer.Start(ctx, brokers); err != nil {
						log.Printf("Index consumer stopped: %v", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return indexConsumer.Stop()
			},
		})
	}

	// 运行应用程序
	if err := app.Run(); err != nil {
		panic(err)
	}
}
