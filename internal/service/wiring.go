package service

import (
	"fmt"

	"github.com/d60-Lab/habbo-feed/config"
	"github.com/d60-Lab/habbo-feed/internal/activity"
)

// NewAggregator 按配置构造聚合器（语言、摘要顺序、徽章阈值、合并窗口）
func NewAggregator(cfg config.FeedConfig) (*activity.Aggregator, error) {
	order, err := activity.ParseOrder(cfg.SummaryOrder)
	if err != nil {
		return nil, fmt.Errorf("feed.summary_order: %w", err)
	}
	summarizer := activity.NewSummarizer(activity.NewLocale(cfg.Locale), order, cfg.BadgeThreshold)
	return activity.NewAggregator(cfg.MergeWindow, cfg.MaxDetails, summarizer), nil
}
