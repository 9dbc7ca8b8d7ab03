package oracle

import (
	"context"
	"time"

	"mobility-finance-engine/internal/equity"
	"mobility-finance-engine/internal/identity"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/pkg/errors"
	"mobility-finance-engine/pkg/logger"

	"github.com/ethereum/go-ethereum/crypto"
)

// Store 城市数据缓存存取
type Store interface {
	GetByLocation(ctx context.Context, location string) (*models.UrbanDataRecord, error)
	Upsert(ctx context.Context, record *models.UrbanDataRecord) error
}

// Provider 城市数据提供者
// 优先返回缓存记录；未命中时基于地区名哈希生成确定性演示数据。
// 生产环境应由真实数据预言机通过Update推送。
type Provider struct {
	store  Store
	oracle string
	now    func() time.Time
}

func NewProvider(store Store, oracleAddress string) *Provider {
	return &Provider{
		store:  store,
		oracle: oracleAddress,
		now:    time.Now,
	}
}

// UrbanData 获取指定地区的城市数据
func (p *Provider) UrbanData(ctx context.Context, location string) (equity.UrbanData, error) {
	if location == "" {
		return equity.UrbanData{}, errors.New(errors.ErrInvalidInput, "location is required", nil)
	}

	record, err := p.store.GetByLocation(ctx, location)
	if err != nil {
		return equity.UrbanData{}, err
	}
	if record != nil {
		return equity.New(record.Location, record.IncomeLevel, record.PollutionLevel,
			record.TransportScore, record.Density, record.Timestamp)
	}

	data := Generate(location, p.now())

	if err := p.store.Upsert(ctx, &models.UrbanDataRecord{
		Location:       data.Location,
		IncomeLevel:    data.IncomeLevel,
		PollutionLevel: data.PollutionLevel,
		TransportScore: data.TransportScore,
		Density:        data.Density,
		Timestamp:      data.Timestamp,
	}); err != nil {
		return equity.UrbanData{}, err
	}

	logger.WithFields(map[string]interface{}{
		"location": location,
	}).Debug("生成演示城市数据")

	return data, nil
}

// Update 预言机推送真实城市数据，覆盖缓存
func (p *Provider) Update(ctx context.Context, caller string, data equity.UrbanData) error {
	if !identity.Same(caller, p.oracle) {
		return errors.New(errors.ErrUnauthorized, "caller is not the oracle", nil)
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := p.store.Upsert(ctx, &models.UrbanDataRecord{
		Location:       data.Location,
		IncomeLevel:    data.IncomeLevel,
		PollutionLevel: data.PollutionLevel,
		TransportScore: data.TransportScore,
		Density:        data.Density,
		Timestamp:      data.Timestamp,
	}); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"location": data.Location,
	}).Info("城市数据已更新")

	return nil
}

// Generate 基于地区名的Keccak256哈希生成确定性四因子数据
// 同一地区名在任何节点上都生成同一份数据
func Generate(location string, ts time.Time) equity.UrbanData {
	hash := crypto.Keccak256([]byte(location))

	return equity.UrbanData{
		Location:       location,
		IncomeLevel:    int(hash[0])%10 + 1,
		PollutionLevel: int(hash[1])%10 + 1,
		TransportScore: int(hash[2])%10 + 1,
		Density:        int(hash[3])%10 + 1,
		Timestamp:      ts,
	}
}
