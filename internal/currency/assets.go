package currency

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type AssetConfig struct {
	Symbol             string `yaml:"symbol"`
	Network            string `yaml:"network"`
	Precision          int    `yaml:"precision"`
	NetworkFee         string `yaml:"network_fee"`
	SpreadOverride     string `yaml:"spread_override"`
	TradingWalletId    string `yaml:"trading_wallet_id"`
	SettlementWalletId string `yaml:"settlement_wallet_id"`
	RouteVia           string `yaml:"route_via"`
	TokenAddress       string `yaml:"token_address"`
	TokenDecimals      int    `yaml:"token_decimals"`
}

type AssetsConfig struct {
	Fiat   []string      `yaml:"fiat"`
	Assets []AssetConfig `yaml:"assets"`
}

func LoadAssetConfig(assetsFile string) (*AssetsConfig, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	return ParseAssetConfig(data)
}

// ParseAssetConfig parses and validates the YAML asset configuration.
func ParseAssetConfig(data []byte) (*AssetsConfig, error) {
	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse asset config: %w", err)
	}

	if len(config.Fiat) == 0 {
		config.Fiat = []string{"USD"}
	}

	for i, asset := range config.Assets {
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if asset.Network == "" {
			return nil, fmt.Errorf("asset at index %d missing network", i)
		}
		if asset.Precision < 0 || asset.Precision > 18 {
			return nil, fmt.Errorf("asset %s has invalid precision %d", asset.Symbol, asset.Precision)
		}
		if asset.NetworkFee != "" {
			if _, err := decimal.NewFromString(asset.NetworkFee); err != nil {
				return nil, fmt.Errorf("asset %s has invalid network_fee %q: %w", asset.Symbol, asset.NetworkFee, err)
			}
		}
		if asset.SpreadOverride != "" {
			if _, err := decimal.NewFromString(asset.SpreadOverride); err != nil {
				return nil, fmt.Errorf("asset %s has invalid spread_override %q: %w", asset.Symbol, asset.SpreadOverride, err)
			}
		}
		if asset.RouteVia != "" && asset.TokenAddress == "" {
			return nil, fmt.Errorf("routed asset %s missing token_address", asset.Symbol)
		}
		config.Assets[i].Symbol = strings.ToUpper(asset.Symbol)
		config.Assets[i].RouteVia = strings.ToUpper(asset.RouteVia)
	}

	return &config, nil
}
