package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultConfigFile     = "qdigest.yml"
	DefaultModel          = "gemini-2.5-flash"
	DefaultMaxInputChars  = 70000
	DefaultModelTimeout   = 180 * time.Second
	DefaultTemperature    = 0.2
	DefaultSMTPHost       = "smtp.gmail.com"
	DefaultSMTPPort       = 587
	DefaultProjectTag     = "CI/CD_DevOps_Analysis"
	DefaultIssuesFile     = "./deuda_tecnica_informe.txt"
	DefaultJSONReport     = "sonar_analysis_prioritization_results.json"
	DefaultTextReport     = "reporte_priorizacion_critica.txt"
	DefaultDebtReport     = "deuda_tecnica_informe.txt"
	DefaultCommitReport   = "analisis_ia_commit.txt"
	DefaultSonarURL       = "https://sonarcloud.io"
	DefaultSonarPageSize  = 500
	DefaultPushgatewayJob = "qdigest"
)

// Config is the process configuration, built once at start and passed to every component.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Gemini     Gemini     `yaml:"gemini"`
	Corpus     Corpus     `yaml:"corpus"`
	Report     Report     `yaml:"report"`
	Email      Email      `yaml:"email"`
	Sonar      Sonar      `yaml:"sonar"`
	VCS        VCS        `yaml:"vcs"`
	Archive    Archive    `yaml:"archive"`
	Metrics    Metrics    `yaml:"metrics"`
}

type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Gemini struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Corpus struct {
	Path          string `yaml:"path"`
	MaxInputChars int    `yaml:"max_input_chars"`
	S3Region      string `yaml:"s3_region"`
}

type Report struct {
	ProjectTag       string `yaml:"project_tag"`
	OutputDir        string `yaml:"output_dir"`
	JSONFile         string `yaml:"json_file"`
	TextFile         string `yaml:"text_file"`
	DebtReportFile   string `yaml:"debt_report_file"`
	CommitReportFile string `yaml:"commit_report_file"`
}

type Email struct {
	SMTPHost   string        `yaml:"smtp_host"`
	SMTPPort   int           `yaml:"smtp_port"`
	Sender     string        `yaml:"sender"`
	Password   string        `yaml:"password"`
	Recipients []string      `yaml:"recipients"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Sonar struct {
	URL             string   `yaml:"url"`
	Token           string   `yaml:"token"`
	ProjectKey      string   `yaml:"project_key"`
	PageSize        int      `yaml:"page_size"`
	RequestsPerSec  float64  `yaml:"requests_per_second"`
	RequiredMetrics []string `yaml:"required_metrics"`
}

type VCS struct {
	Provider   string `yaml:"provider"`
	Token      string `yaml:"token"`
	Owner      string `yaml:"owner"`
	Repository string `yaml:"repository"`
	APIURL     string `yaml:"api_url"`
	LocalPath  string `yaml:"local_path"`
}

type Archive struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// ValidateConfigPath checks that path exists and is a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig builds the configuration from an optional YAML file, an optional .env file and the process
// environment, in increasing order of priority. A missing YAML file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	return loadConfig(configPath, os.Getenv)
}

func loadConfig(configPath string, lookup func(string) string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		if err := LoadYAML(configPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
		}
	}

	if envFile := lookup("ENV_FILE_PATH"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load() // a .env in the working directory is optional
	}

	applyEnvironment(cfg, lookup)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnvironment overrides file values with the variables the pipeline scripts have always used.
func applyEnvironment(cfg *Config, lookup func(string) string) {
	setString(&cfg.Logger.Level, lookup("QDIGEST_LOG_LEVEL"))

	setString(&cfg.Gemini.APIKey, lookup("GEMINI_API_KEY"))
	setString(&cfg.Gemini.Model, lookup("GEMINI_MODEL"))
	setString(&cfg.Gemini.BaseURL, lookup("GEMINI_BASE_URL"))

	setString(&cfg.Corpus.Path, lookup("ISSUES_FILE"))
	setInt(&cfg.Corpus.MaxInputChars, lookup("MAX_INPUT_CHARS"))

	setString(&cfg.Report.ProjectTag, lookup("PROJECT_TAG"))
	setString(&cfg.Report.OutputDir, lookup("QDIGEST_OUTPUT_DIR"))

	setString(&cfg.Email.Sender, lookup("EMAIL_USER"))
	setString(&cfg.Email.Password, lookup("EMAIL_PASS"))
	setString(&cfg.Email.SMTPHost, lookup("SMTP_HOST"))
	setInt(&cfg.Email.SMTPPort, lookup("SMTP_PORT"))
	if raw := lookup("EMAIL_RECIPIENTS"); raw != "" {
		cfg.Email.Recipients = splitList(raw)
	}

	setString(&cfg.Sonar.URL, lookup("SONAR_URL"))
	setString(&cfg.Sonar.Token, lookup("SONAR_TOKEN"))
	setString(&cfg.Sonar.ProjectKey, lookup("SONAR_PROJECT_KEY"))

	setString(&cfg.VCS.Owner, lookup("OWNER"))
	setString(&cfg.VCS.Repository, lookup("REPO"))
	setString(&cfg.VCS.Token, firstNonEmpty(lookup("GH_PAT"), lookup("GITLAB_TOKEN")))

	setString(&cfg.Archive.Bucket, lookup("QDIGEST_ARCHIVE_BUCKET"))
	setString(&cfg.Metrics.PushgatewayURL, lookup("QDIGEST_PUSHGATEWAY_URL"))
}

func applyDefaults(cfg *Config) {
	cfg.Gemini.Model = SetThen(cfg.Gemini.Model, DefaultModel)
	cfg.Gemini.Temperature = SetThen(cfg.Gemini.Temperature, float32(DefaultTemperature))
	cfg.Gemini.Timeout = SetThen(cfg.Gemini.Timeout, DefaultModelTimeout)

	cfg.Corpus.Path = SetThen(cfg.Corpus.Path, DefaultIssuesFile)
	cfg.Corpus.MaxInputChars = SetThen(cfg.Corpus.MaxInputChars, DefaultMaxInputChars)

	cfg.Report.ProjectTag = SetThen(cfg.Report.ProjectTag, DefaultProjectTag)
	cfg.Report.OutputDir = SetThen(cfg.Report.OutputDir, ".")
	cfg.Report.JSONFile = SetThen(cfg.Report.JSONFile, DefaultJSONReport)
	cfg.Report.TextFile = SetThen(cfg.Report.TextFile, DefaultTextReport)
	cfg.Report.DebtReportFile = SetThen(cfg.Report.DebtReportFile, DefaultDebtReport)
	cfg.Report.CommitReportFile = SetThen(cfg.Report.CommitReportFile, DefaultCommitReport)

	cfg.Email.SMTPHost = SetThen(cfg.Email.SMTPHost, DefaultSMTPHost)
	cfg.Email.SMTPPort = SetThen(cfg.Email.SMTPPort, DefaultSMTPPort)
	cfg.Email.Timeout = SetThen(cfg.Email.Timeout, 30*time.Second)

	cfg.Sonar.URL = SetThen(cfg.Sonar.URL, DefaultSonarURL)
	cfg.Sonar.PageSize = SetThen(cfg.Sonar.PageSize, DefaultSonarPageSize)

	cfg.Metrics.Job = SetThen(cfg.Metrics.Job, DefaultPushgatewayJob)
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setInt(dst *int, value string) {
	v := strings.TrimSpace(value)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
