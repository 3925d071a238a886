package database

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"amity-social/pkg/logger"
)

// ElasticSearch ElasticSearch客户端封装
type ElasticSearch struct {
	client *elasticsearch.Client
	logger logger.Logger
}

// NewElasticSearch 创建ElasticSearch连接
func NewElasticSearch(addresses []string, username, password string, log logger.Logger) (*ElasticSearch, error) {
	esConfig := elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create ElasticSearch client: %v", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ElasticSearch: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("ElasticSearch connection error: %s", res.String())
	}

	log.Info(context.Background(), "ElasticSearch connected successfully")

	return &ElasticSearch{
		client: client,
		logger: log,
	}, nil
}

// GetClient 获取原生客户端
func (es *ElasticSearch) GetClient() *elasticsearch.Client {
	return es.client
}

// Ping 测试连接
func (es *ElasticSearch) Ping(ctx context.Context) error {
	res, err := es.client.Info()
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ElasticSearch ping failed: %s", res.String())
	}

	return nil
}

// Close 关闭连接
func (es *ElasticSearch) Close() error {
	// ElasticSearch客户端无需显式关闭
	return nil
}
