package hcl

// fileRoot is the top-level structure of a pipeline file.
type fileRoot struct {
	Crate          string            `hcl:"crate,optional"`
	DefaultChannel string            `hcl:"default_channel,optional"`
	ReleaseChannel string            `hcl:"release_channel,optional"`
	Trunk          string            `hcl:"trunk,optional"`
	ArtifactDir    string            `hcl:"artifact_dir,optional"`
	Env            map[string]string `hcl:"env,optional"`

	Scripts *scriptsBlock  `hcl:"scripts,block"`
	Targets []*targetBlock `hcl:"target,block"`
	Cache   *cacheBlock    `hcl:"cache,block"`
	Deploy  *deployBlock   `hcl:"deploy,block"`
	Notify  *notifyBlock   `hcl:"notify,block"`
}

type scriptsBlock struct {
	Install      string  `hcl:"install,optional"`
	Script       string  `hcl:"script,optional"`
	BeforeDeploy string  `hcl:"before_deploy,optional"`
	Shell        *string `hcl:"shell,optional"`
}

// targetBlock is one `target "<triple>" { ... }` matrix entry.
type targetBlock struct {
	Triple       string            `hcl:"triple,label"`
	OS           string            `hcl:"os,optional"`
	Channel      string            `hcl:"channel,optional"`
	DisableTests bool              `hcl:"disable_tests,optional"`
	Enabled      *bool             `hcl:"enabled,optional"`
	Env          map[string]string `hcl:"env,optional"`
}

type cacheBlock struct {
	Store        string `hcl:"store,optional"`
	Dir          string `hcl:"dir,optional"`
	EnvVar       string `hcl:"env_var,optional"`
	Endpoint     string `hcl:"endpoint,optional"`
	Bucket       string `hcl:"bucket,optional"`
	Prefix       string `hcl:"prefix,optional"`
	Region       string `hcl:"region,optional"`
	AccessKeyEnv string `hcl:"access_key_env,optional"`
	SecretKeyEnv string `hcl:"secret_key_env,optional"`
	UseSSL       bool   `hcl:"use_ssl,optional"`
}

type deployBlock struct {
	Provider   string `hcl:"provider,optional"`
	Repository string `hcl:"repository,optional"`
	APIURL     string `hcl:"api_url,optional"`
	TokenEnv   string `hcl:"token_env,optional"`
	Endpoint   string `hcl:"endpoint,optional"`
	Bucket     string `hcl:"bucket,optional"`
	Prefix     string `hcl:"prefix,optional"`
	Region     string `hcl:"region,optional"`
	UseSSL     bool   `hcl:"use_ssl,optional"`
}

type notifyBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}
