package models

// ClickEvent задача на увеличение счётчика кликов.
// Clicks значение счётчика на момент запроса плюс один,
// используется только чтобы решить, нужно ли увеличивать счётчик.
type ClickEvent struct {
	Key    string
	Clicks int64
}

// ClickQueueStats состояние очереди обработки кликов
type ClickQueueStats struct {
	BufferSize  int `json:"buffer_size"`
	BufferUsed  int `json:"buffer_used"`
	WorkerCount int `json:"worker_count"`
}
