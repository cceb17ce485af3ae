package models

// MConfig Structure
type MConfig struct {
	Name         string              `yaml:"name"`
	Host         string              `yaml:"host"`
	Port         int                 `yaml:"port"`
	LogLevel     string              `yaml:"log_level"`
	GrpcHost     string              `yaml:"grpc_host"`
	GrpcPort     int                 `yaml:"grpc_port"`
	Storage      MStorageConfig      `yaml:"storage"`
	Network      MNetworkConfig      `yaml:"network"`
	QuoteSource  MQuoteSourceConfig  `yaml:"quote_source"`
	StreamSource MStreamSourceConfig `yaml:"stream_source"`
	Datafeed     MDatafeedConfig     `yaml:"datafeed"`
	Redis        MRedisConfig        `yaml:"redis"`
	Kafka        MKafkaConfig        `yaml:"kafka"`
}

type MStorageConfig struct {
	Enabled            bool   `yaml:"enabled"`
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Proxies           []string `yaml:"proxies"`
	RequestTimeout    int      `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	UserAgent         string   `yaml:"user_agent"`
}

type MQuoteSourceConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	APIKey         string  `yaml:"api_key"`
	Network        string  `yaml:"network"`
	ReferenceAsset string  `yaml:"reference_asset"` // e.g. WBNB
	FiatAsset      string  `yaml:"fiat_asset"`      // e.g. BUSD
	MinTradeUSD    float64 `yaml:"min_trade_usd"`
}

type MStreamSourceConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type MDatafeedConfig struct {
	SupportedResolutions []string `yaml:"supported_resolutions"`
	IntradayMultipliers  []string `yaml:"intraday_multipliers"`
	PriceScale           int64    `yaml:"price_scale"`
	MinMove              int64    `yaml:"min_move"`
	PollIntervalSeconds  int      `yaml:"poll_interval_seconds"`
}

type MRedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type MKafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}
