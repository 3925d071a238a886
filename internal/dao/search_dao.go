package dao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"amity-social/internal/model"
	"amity-social/pkg/logger"
)

const messageIndex = "messages"

// elasticsearchDAO 消息搜索索引数据访问对象
type elasticsearchDAO struct {
	client *elasticsearch.Client
	logger logger.Logger
}

// NewSearchDAO 创建搜索DAO实例
func NewSearchDAO(client *elasticsearch.Client, log logger.Logger) SearchDAO {
	return &elasticsearchDAO{
		client: client,
		logger: log,
	}
}

// IndexMessage 索引单条消息
func (d *elasticsearchDAO) IndexMessage(ctx context.Context, msg *model.Message) error {
	doc := map[string]interface{}{
		"message_id":   msg.MessageID,
		"sender_id":    msg.SenderID,
		"recipient_id": msg.RecipientID,
		"pair_key":     msg.PairKey,
		"content":      msg.Content,
		"media_type":   msg.MediaType,
		"created_at":   msg.CreatedAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal message doc: %v", err)
	}

	req := esapi.IndexRequest{
		Index:      messageIndex,
		DocumentID: strconv.FormatInt(msg.MessageID, 10),
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, d.client)
	if err != nil {
		return fmt.Errorf("failed to index message: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index message: %s", res.String())
	}
	return nil
}

// DeleteThread 删除一个会话的全部索引文档
func (d *elasticsearchDAO) DeleteThread(ctx context.Context, pairKey string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"pair_key": pairKey,
			},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal delete query: %v", err)
	}

	req := esapi.DeleteByQueryRequest{
		Index: []string{messageIndex},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, d.client)
	if err != nil {
		return fmt.Errorf("failed to delete thread from index: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to delete thread from index: %s", res.String())
	}
	return nil
}

// SearchMessages 在用户自己的会话里做全文检索
func (d *elasticsearchDAO) SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]*model.Message, error) {
	searchBody := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"match": map[string]interface{}{
							"content": query,
						},
					},
				},
				"filter": []map[string]interface{}{
					{
						"bool": map[string]interface{}{
							"should": []map[string]interface{}{
								{"term": map[string]interface{}{"sender_id": userID}},
								{"term": map[string]interface{}{"recipient_id": userID}},
							},
							"minimum_should_match": 1,
						},
					},
				},
			},
		},
		"sort": []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}

	bodyJSON, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %v", err)
	}

	res, err := d.client.Search(
		d.client.Search.WithContext(ctx),
		d.client.Search.WithIndex(messageIndex),
		d.client.Search.WithBody(bytes.NewReader(bodyJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to search messages: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source model.Message `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %v", err)
	}

	messages := make([]*model.Message, 0, len(searchResult.Hits.Hits))
	for i := range searchResult.Hits.Hits {
		msg := searchResult.Hits.Hits[i].Source
		messages = append(messages, &msg)
	}
	return messages, nil
}
