package repository

import (
	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/pkg/logger"
)

// NewZhipuAIRepository creates the Zhipu GLM narrative backend. The GLM API
// is wire-compatible with OpenAI chat completions.
func NewZhipuAIRepository(cfg config.AIProvider, log *logger.Logger) AIRepository {
	return newOpenAICompatRepository("zhipu", "https://open.bigmodel.cn/api/paas/v4", cfg, log)
}
