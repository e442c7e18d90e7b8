package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const defaultShopName = "MGM JEWELLERS"

// ShopProfile is the fixed letterhead printed on every invoice.
type ShopProfile struct {
	Name    string      `mapstructure:"name"`
	Address string      `mapstructure:"address"`
	Phones  []string    `mapstructure:"phones"`
	GSTIN   string      `mapstructure:"gstin"`
	Bank    BankDetails `mapstructure:"bank"`
}

type BankDetails struct {
	AccountNumber string `mapstructure:"account_number"`
	BankName      string `mapstructure:"bank_name"`
	IFSC          string `mapstructure:"ifsc"`
	Branch        string `mapstructure:"branch"`
}

func LoadShopProfile(path string) (ShopProfile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return ShopProfile{}, fmt.Errorf("read shop profile %s: %w", path, err)
	}

	var profile ShopProfile
	if err := v.UnmarshalKey("shop", &profile); err != nil {
		return ShopProfile{}, fmt.Errorf("decode shop profile: %w", err)
	}
	if profile.Name == "" {
		profile.Name = defaultShopName
	}
	return profile, nil
}
