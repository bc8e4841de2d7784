package config

const (
	defaultConfigPath             = "~/.config/docflow/config.toml"
	defaultStateDir               = "~/.local/share/docflow"
	defaultStoreDriver            = DriverSQLite
	defaultBusyTimeoutMS          = 5000
	defaultNumberPrefix           = "DOC-"
	defaultNumberWidth            = 7
	defaultNumberingBackend       = NumberingStore
	defaultRedisKey               = "docflow:document_number"
	defaultBatchSize              = 50
	defaultSubmitIntervalSeconds  = 30
	defaultApproveIntervalSeconds = 30
	defaultErrorRetrySeconds      = 10
	defaultClaimLeaseSeconds      = 60
	defaultParallelism            = 1
	defaultSubmitActor            = "SUBMIT-worker"
	defaultApproveActor           = "APPROVE-worker"
	defaultAPIBind                = "127.0.0.1:8080"
	defaultMaxBatchIDs            = 1000
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultGeneratorCount         = 100
	defaultGeneratorBaseURL       = "http://127.0.0.1:8080/api/documents"
	defaultGeneratorRate          = 50
	defaultGeneratorAuthor        = "Generator"
	defaultGeneratorInitiator     = "generator-util"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Numbering backends.
const (
	NumberingStore = "store"
	NumberingRedis = "redis"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Store: Store{
			Driver:        defaultStoreDriver,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Numbering: Numbering{
			Prefix:   defaultNumberPrefix,
			Width:    defaultNumberWidth,
			Backend:  defaultNumberingBackend,
			RedisKey: defaultRedisKey,
		},
		Worker: Worker{
			Enabled:                true,
			BatchSize:              defaultBatchSize,
			SubmitIntervalSeconds:  defaultSubmitIntervalSeconds,
			ApproveIntervalSeconds: defaultApproveIntervalSeconds,
			ErrorRetrySeconds:      defaultErrorRetrySeconds,
			ClaimLeaseSeconds:      defaultClaimLeaseSeconds,
			Parallelism:            defaultParallelism,
			SubmitActor:            defaultSubmitActor,
			ApproveActor:           defaultApproveActor,
		},
		API: API{
			Bind:        defaultAPIBind,
			MaxBatchIDs: defaultMaxBatchIDs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Generator: Generator{
			Count:         defaultGeneratorCount,
			BaseURL:       defaultGeneratorBaseURL,
			RatePerSecond: defaultGeneratorRate,
			Author:        defaultGeneratorAuthor,
			Initiator:     defaultGeneratorInitiator,
		},
	}
}
