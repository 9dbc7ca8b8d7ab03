package service

import (
	"context"

	"mobility-finance-engine/internal/models"
)

// AssetLedger 跨组件只读能力接口
// 营收分配与治理通过它读取资产与出资账本，不直接耦合资金池实现，
// 测试时可用内存替身。
type AssetLedger interface {
	Asset(ctx context.Context, assetID string) (*models.MobilityAsset, error)
	AssetContributions(ctx context.Context, assetID string) ([]models.Contribution, error)
}
