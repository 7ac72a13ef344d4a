package utils

import (
	"fmt"

	"github.com/blagojts/viper"
)

// SetupConfigFile points viper at the given config file, or at
// ./config.yaml when none is supplied. A missing config file is not an
// error: flags and environment cover every setting.
func SetupConfigFile(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
