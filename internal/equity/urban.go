package equity

import (
	"fmt"
	"time"

	"mobility-finance-engine/pkg/errors"
)

// UrbanData 四因子城市数据，所有因子取值范围[1,10]
// 越界数据在构造边界拒绝，评分逻辑内部不再校验
type UrbanData struct {
	Location       string    `json:"location"`
	IncomeLevel    int       `json:"income_level"`
	PollutionLevel int       `json:"pollution_level"`
	TransportScore int       `json:"public_transport_score"`
	Density        int       `json:"population_density"`
	Timestamp      time.Time `json:"timestamp"`
}

// New 构造并校验城市数据
func New(location string, income, pollution, transport, density int, ts time.Time) (UrbanData, error) {
	d := UrbanData{
		Location:       location,
		IncomeLevel:    income,
		PollutionLevel: pollution,
		TransportScore: transport,
		Density:        density,
		Timestamp:      ts,
	}
	if err := d.Validate(); err != nil {
		return UrbanData{}, err
	}
	return d, nil
}

func (d UrbanData) Validate() error {
	if d.Location == "" {
		return errors.New(errors.ErrInvalidInput, "location is required", nil)
	}
	for name, v := range map[string]int{
		"income_level":           d.IncomeLevel,
		"pollution_level":        d.PollutionLevel,
		"public_transport_score": d.TransportScore,
		"population_density":     d.Density,
	} {
		if v < 1 || v > 10 {
			return errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("%s out of range [1,10]: %d", name, v), nil)
		}
	}
	return nil
}
