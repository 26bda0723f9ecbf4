package domain

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"saphira/server/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed data/use_cases.yaml
var embeddedUseCases []byte

//go:embed data/countries.yaml
var embeddedCountries []byte

//go:embed data/companies.yaml
var embeddedCompanies []byte

// Voice 一个可用的 TTS 音色。
type Voice struct {
	ID     string `yaml:"id"`
	Gender string `yaml:"gender"`
}

// CountryProfile 国家级的本地化数据。
type CountryProfile struct {
	Country         model.Country `yaml:"country"`
	DisplayName     string        `yaml:"display_name"`
	Detect          []string      `yaml:"detect"`
	PanelNames      []string      `yaml:"panel_names"`
	PanelRoles      []string      `yaml:"panel_roles"`
	Voices          []Voice       `yaml:"voices"`
	Fillers         []string      `yaml:"fillers"`
	CulturalContext []string      `yaml:"cultural_context"`
	ToneGuide       string        `yaml:"tone_guide"`

	detect *regexp.Regexp
}

// Catalog 场景与国家的只读目录，加载后不再修改，可被多个会话共享。
type Catalog struct {
	useCases     map[model.UseCase]model.UseCaseConfig
	order        []model.UseCase
	detectors    map[model.UseCase]*regexp.Regexp
	countries    map[model.Country]CountryProfile
	countryOrder []model.Country

	companies     map[string]Company
	companyOrder  []string
	companyKeys   map[string]string
	companyDetect map[string]*regexp.Regexp
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default 返回内置目录。内置数据解析失败属于构建错误，直接 panic。
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedUseCases, embeddedCountries)
		if err == nil {
			err = c.LoadCompanies(embeddedCompanies)
		}
		if err != nil {
			panic(fmt.Sprintf("parse embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadUseCases 从指定路径加载场景目录，国家数据使用内置版本。
func LoadUseCases(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read use cases: %w", err)
	}
	c, err := Parse(data, embeddedCountries)
	if err != nil {
		return nil, err
	}
	if err := c.LoadCompanies(embeddedCompanies); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse 解析场景与国家 YAML 并校验。
func Parse(useCasesYAML, countriesYAML []byte) (*Catalog, error) {
	var useCases []model.UseCaseConfig
	if err := yaml.Unmarshal(useCasesYAML, &useCases); err != nil {
		return nil, fmt.Errorf("parse use cases: %w", err)
	}
	var countries []CountryProfile
	if err := yaml.Unmarshal(countriesYAML, &countries); err != nil {
		return nil, fmt.Errorf("parse countries: %w", err)
	}

	c := &Catalog{
		useCases:  make(map[model.UseCase]model.UseCaseConfig, len(useCases)),
		detectors: make(map[model.UseCase]*regexp.Regexp),
		countries: make(map[model.Country]CountryProfile, len(countries)),
	}
	for _, uc := range useCases {
		if err := validateUseCase(uc); err != nil {
			return nil, err
		}
		if _, dup := c.useCases[uc.UseCase]; dup {
			return nil, fmt.Errorf("duplicate use case %q", uc.UseCase)
		}
		c.useCases[uc.UseCase] = uc
		c.order = append(c.order, uc.UseCase)
		if re := keywordRegexp(uc.Keywords); re != nil {
			c.detectors[uc.UseCase] = re
		}
	}
	if _, ok := c.useCases[model.UseCaseJobInterview]; !ok {
		return nil, fmt.Errorf("use case %q is required as the default", model.UseCaseJobInterview)
	}

	for _, cp := range countries {
		if len(cp.PanelNames) == 0 || len(cp.Voices) == 0 {
			return nil, fmt.Errorf("country %q needs panel names and voices", cp.Country)
		}
		cp.detect = keywordRegexp(cp.Detect)
		c.countries[cp.Country] = cp
		c.countryOrder = append(c.countryOrder, cp.Country)
	}
	if _, ok := c.countries[model.CountryNigeria]; !ok {
		return nil, fmt.Errorf("country %q is required as the default", model.CountryNigeria)
	}
	return c, nil
}

func validateUseCase(uc model.UseCaseConfig) error {
	if uc.UseCase == "" {
		return fmt.Errorf("use case id is required")
	}
	if len(uc.DefaultPanel) == 0 {
		return fmt.Errorf("use case %q has no default panel", uc.UseCase)
	}
	if uc.MaxQuestions < 1 || uc.MinQuestions > uc.MaxQuestions {
		return fmt.Errorf("use case %q has invalid question range %d-%d", uc.UseCase, uc.MinQuestions, uc.MaxQuestions)
	}
	for _, m := range uc.DefaultPanel {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("use case %q has a panel member without id or name", uc.UseCase)
		}
	}
	return nil
}

func keywordRegexp(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// UseCase 查找场景配置。返回的默认面试小组是副本。
func (c *Catalog) UseCase(u model.UseCase) (model.UseCaseConfig, bool) {
	cfg, ok := c.useCases[u]
	if !ok {
		return model.UseCaseConfig{}, false
	}
	cfg.DefaultPanel = append([]model.PanelMember(nil), cfg.DefaultPanel...)
	return cfg, true
}

// UseCases 按目录顺序返回全部场景。
func (c *Catalog) UseCases() []model.UseCaseConfig {
	out := make([]model.UseCaseConfig, 0, len(c.order))
	for _, u := range c.order {
		cfg, _ := c.UseCase(u)
		out = append(out, cfg)
	}
	return out
}

// DetectUseCase 根据用户描述猜测场景，没有命中时返回求职面试。
func (c *Catalog) DetectUseCase(input string) model.UseCase {
	lower := strings.ToLower(input)
	for _, u := range c.order {
		if re, ok := c.detectors[u]; ok && re.MatchString(lower) {
			return u
		}
	}
	return model.UseCaseJobInterview
}

// Country 查找国家数据，未知国家返回尼日利亚并以 false 标记。
func (c *Catalog) Country(country model.Country) (CountryProfile, bool) {
	if cp, ok := c.countries[country]; ok {
		return cp, true
	}
	return c.countries[model.CountryNigeria], false
}

// DetectCountry 根据用户描述猜测国家，默认尼日利亚。
func (c *Catalog) DetectCountry(input string) model.Country {
	lower := strings.ToLower(input)
	for _, country := range c.countryOrder {
		cp := c.countries[country]
		if country != model.CountryNigeria && cp.detect != nil && cp.detect.MatchString(lower) {
			return country
		}
	}
	return model.CountryNigeria
}

// LocalizedPanel 返回某场景的默认面试小组；非尼日利亚时替换为当地名字与音色，角色与人格保持不变。
func (c *Catalog) LocalizedPanel(u model.UseCase, country model.Country) ([]model.PanelMember, bool) {
	cfg, ok := c.UseCase(u)
	if !ok {
		return nil, false
	}
	if country == "" || country == model.CountryNigeria {
		return cfg.DefaultPanel, true
	}
	cp, known := c.Country(country)
	if !known {
		return cfg.DefaultPanel, true
	}
	panel := cfg.DefaultPanel
	for i := range panel {
		panel[i].Name = cp.PanelNames[i%len(cp.PanelNames)]
		panel[i].VoiceID = cp.VoiceFor(panel[i].Gender, i)
	}
	return panel, true
}

// VoiceFor 按性别挑选音色；该性别没有可用音色时退回任意音色。
func (cp CountryProfile) VoiceFor(gender string, index int) string {
	if index < 0 {
		index = 0
	}
	var matched []string
	for _, v := range cp.Voices {
		if gender != "" && v.Gender == gender {
			matched = append(matched, v.ID)
		}
	}
	if len(matched) == 0 {
		return cp.Voices[index%len(cp.Voices)].ID
	}
	return matched[index%len(matched)]
}
