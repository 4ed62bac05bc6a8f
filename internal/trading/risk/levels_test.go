package risk

import (
	"errors"
	"testing"
)

func TestLevels(t *testing.T) {
	calc, err := NewCalculator(nil)
	if err != nil {
		t.Fatalf("NewCalculator() error = %v", err)
	}

	tests := []struct {
		name      string
		asset     string
		entry     float64
		atr       float64
		direction int
		want      Levels
	}{
		{
			name: "BTC лонг", asset: "BTC/USDT", entry: 60000, atr: 500, direction: 1,
			want: Levels{Entry: 60000, Stop: 59400, Target: 61250, RewardRisk: 2.08, Direction: 1},
		},
		{
			name: "BTC шорт", asset: "BTC/USDT", entry: 60000, atr: 500, direction: -1,
			want: Levels{Entry: 60000, Stop: 60600, Target: 58750, RewardRisk: 2.08, Direction: -1},
		},
		{
			name: "ETH лонг", asset: "ETH/USDT", entry: 3000, atr: 40, direction: 1,
			want: Levels{Entry: 3000, Stop: 2940, Target: 3120, RewardRisk: 2, Direction: 1},
		},
		{
			name: "Дешевый актив", asset: "XRP/USDT", entry: 0.5, atr: 0.01, direction: 1,
			want: Levels{Entry: 0.5, Stop: 0.485, Target: 0.53, RewardRisk: 2, Direction: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Levels(tt.asset, tt.entry, tt.atr, tt.direction)
			if err != nil {
				t.Fatalf("Levels() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Levels() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLevelsRejected(t *testing.T) {
	calc, _ := NewCalculator(nil)

	tests := []struct {
		name      string
		entry     float64
		atr       float64
		direction int
	}{
		{"Нулевой ATR", 60000, 0, 1},
		{"Отрицательная цена", -1, 10, 1},
		{"Без направления", 60000, 500, 0},
		{"Стоп ниже нуля", 100, 90, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Levels("BTC/USDT", tt.entry, tt.atr, tt.direction)
			if !errors.Is(err, ErrRejected) {
				t.Errorf("Levels() error = %v, want ErrRejected", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	calc, _ := NewCalculator(nil)

	tests := []struct {
		name    string
		levels  Levels
		wantErr bool
	}{
		{"Корректный лонг", Levels{Entry: 100, Stop: 98, Target: 104, Direction: 1}, false},
		{"Корректный шорт", Levels{Entry: 100, Stop: 102, Target: 96, Direction: -1}, false},
		{"Плохое соотношение", Levels{Entry: 100, Stop: 98, Target: 102, Direction: 1}, true},
		{"Неверный порядок", Levels{Entry: 100, Stop: 104, Target: 98, Direction: 1}, true},
		{"Нулевая цель", Levels{Entry: 100, Stop: 102, Target: 0, Direction: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := calc.Validate(tt.levels)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOverrides(t *testing.T) {
	calc, err := NewCalculator(map[string]Multipliers{"eth/usdt": {StopATR: 1, TargetATR: 2}})
	if err != nil {
		t.Fatalf("NewCalculator() error = %v", err)
	}
	if got := calc.MultipliersFor("ETH/USDT"); got != (Multipliers{StopATR: 1, TargetATR: 2}) {
		t.Errorf("MultipliersFor(ETH) = %+v", got)
	}
	if got := calc.MultipliersFor("SOL/USDT"); got != (Multipliers{StopATR: 1.5, TargetATR: 3}) {
		t.Errorf("MultipliersFor(SOL) = %+v, want defaults", got)
	}

	calc, _ = NewCalculator(map[string]Multipliers{"BTC/USDT": {TargetATR: 3}})
	if got := calc.MultipliersFor("BTC/USDT"); got != (Multipliers{StopATR: 1.2, TargetATR: 3}) {
		t.Errorf("MultipliersFor(BTC) partial override = %+v", got)
	}

	if _, err := NewCalculator(map[string]Multipliers{"BTC/USDT": {StopATR: -1, TargetATR: 2}}); err == nil {
		t.Errorf("NewCalculator() with negative stop multiplier should fail")
	}
}
