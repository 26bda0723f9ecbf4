package domain

import (
	"fmt"
	"regexp"
	"strings"

	"saphira/server/internal/model"

	"gopkg.in/yaml.v3"
)

// InterviewStage 公司招聘流程中的一轮。
type InterviewStage struct {
	Stage      int      `yaml:"stage" json:"stage"`
	Name       string   `yaml:"name" json:"name"`
	Components []string `yaml:"components" json:"components"`
	Duration   string   `yaml:"duration,omitempty" json:"duration,omitempty"`
	Note       string   `yaml:"note,omitempty" json:"note,omitempty"`
}

// Company 求职面试的目标公司：题库、核心价值观与面试流程。
type Company struct {
	ID              string           `yaml:"id" json:"id"`
	Name            string           `yaml:"name" json:"name"`
	Country         model.Country    `yaml:"country" json:"country"`
	Sector          string           `yaml:"sector" json:"sector"`
	Aliases         []string         `yaml:"aliases" json:"-"`
	Focus           string           `yaml:"focus" json:"focus,omitempty"`
	CoreValues      []string         `yaml:"core_values" json:"core_values"`
	InterviewStages []InterviewStage `yaml:"interview_stages" json:"interview_stages"`
	Questions       []string         `yaml:"questions" json:"questions"`
}

// 公司未知时按关键词判断行业，顺序即优先级。
var sectorRules = []struct {
	sector string
	re     *regexp.Regexp
}{
	{"Banking/Finance", regexp.MustCompile(`bank|fintech|pay|finance|loan|credit`)},
	{"Technology", regexp.MustCompile(`tech|software|developer|engineer|data`)},
	{"Telecommunications", regexp.MustCompile(`tel|mtn|safaricom|airtel|mobile network`)},
	{"Energy", regexp.MustCompile(`energy|oil|gas|power`)},
	{"Healthcare", regexp.MustCompile(`health|medical|hospital|pharma`)},
}

func companyKey(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "_", " "))
	return strings.Join(strings.Fields(name), " ")
}

// LoadCompanies 解析公司数据并挂到目录上，只在构建目录时调用。
func (c *Catalog) LoadCompanies(data []byte) error {
	var companies []Company
	if err := yaml.Unmarshal(data, &companies); err != nil {
		return fmt.Errorf("parse companies: %w", err)
	}
	c.companies = make(map[string]Company, len(companies))
	c.companyKeys = make(map[string]string)
	c.companyDetect = make(map[string]*regexp.Regexp, len(companies))
	c.companyOrder = nil

	for _, co := range companies {
		if co.ID == "" || co.Name == "" {
			return fmt.Errorf("company needs an id and a name")
		}
		if len(co.Questions) == 0 {
			return fmt.Errorf("company %q has no questions", co.ID)
		}
		if _, ok := c.countries[co.Country]; !ok {
			return fmt.Errorf("company %q has unknown country %q", co.ID, co.Country)
		}
		if _, dup := c.companies[co.ID]; dup {
			return fmt.Errorf("duplicate company %q", co.ID)
		}
		c.companies[co.ID] = co
		c.companyOrder = append(c.companyOrder, co.ID)

		keys := append([]string{co.ID, co.Name}, co.Aliases...)
		for i, k := range keys {
			keys[i] = companyKey(k)
			c.companyKeys[keys[i]] = co.ID
		}
		c.companyDetect[co.ID] = keywordRegexp(keys)
	}
	return nil
}

// Company 按 id、名称或别名查找公司，不区分大小写；整段名称匹配不上时在文本里找公司名，
// 例如 "GTBank Plc"。
func (c *Catalog) Company(name string) (Company, bool) {
	key := companyKey(name)
	if key == "" {
		return Company{}, false
	}
	if id, ok := c.companyKeys[key]; ok {
		return c.companies[id], true
	}
	for _, id := range c.companyOrder {
		if c.companyDetect[id].MatchString(key) {
			return c.companies[id], true
		}
	}
	return Company{}, false
}

// Companies 按目录顺序返回公司；country 为空时返回全部。
func (c *Catalog) Companies(country model.Country) []Company {
	out := make([]Company, 0, len(c.companyOrder))
	for _, id := range c.companyOrder {
		co := c.companies[id]
		if country == "" || co.Country == country {
			out = append(out, co)
		}
	}
	return out
}

// CompanyQuestions 公司题库；公司未知时为空。
func (c *Catalog) CompanyQuestions(name string) []string {
	co, ok := c.Company(name)
	if !ok {
		return nil
	}
	return append([]string(nil), co.Questions...)
}

// DetectSector 已知公司直接取其行业，否则按职位与公司名关键词判断；判断不出时返回空串。
func (c *Catalog) DetectSector(topic, company string) string {
	if co, ok := c.Company(company); ok && co.Sector != "" {
		return co.Sector
	}
	text := strings.ToLower(topic + " " + company)
	for _, r := range sectorRules {
		if r.re.MatchString(text) {
			return r.sector
		}
	}
	return ""
}

// ToneGuide 国家语气指南，已知公司时追加核心价值观与面试重点。
func (c *Catalog) ToneGuide(country model.Country, company string) string {
	cp, _ := c.Country(country)
	guide := strings.TrimSpace(cp.ToneGuide)
	co, ok := c.Company(company)
	if !ok {
		return guide
	}
	var sb strings.Builder
	sb.WriteString(guide)
	if len(co.CoreValues) > 0 {
		fmt.Fprintf(&sb, "\n\n%s Core Values: %s", co.Name, strings.Join(co.CoreValues, ", "))
	}
	if co.Focus != "" {
		fmt.Fprintf(&sb, "\n%s interviewers focus on: %s", co.Name, co.Focus)
	}
	return sb.String()
}
