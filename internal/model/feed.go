package model

// FeedEntry 实时动态中的一条；Key 在一个动态流内唯一
type FeedEntry struct {
	Key      string             `json:"key"`
	Activity AggregatedActivity `json:"activity"`
	// IsNew 仅在插入它的那一轮合并中为 true，不持久化
	IsNew bool `json:"is_new"`
}
