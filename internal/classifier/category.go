package classifier

// Category 请求所属的外部数据领域
type Category string

const (
	Finance        Category = "finance"
	Weather        Category = "weather"
	News           Category = "news"
	Crypto         Category = "crypto"
	Sports         Category = "sports"
	Government     Category = "government"
	Education      Category = "education"
	Health         Category = "health"
	Environment    Category = "environment"
	Demographics   Category = "demographics"
	Transportation Category = "transportation"
	Economics      Category = "economics"
	MLDatasets     Category = "ml_datasets"
	AITraining     Category = "ai_training"
	ComputerVision Category = "computer_vision"
	NLPDatasets    Category = "nlp_datasets"
	General        Category = "general"
)

// AllCategories 模型可选的全部类别，顺序与 schema 中的 enum 一致
var AllCategories = []Category{
	Finance, Weather, News, Crypto, Sports, Government, Education, Health,
	Environment, Demographics, Transportation, Economics, MLDatasets, AITraining,
	ComputerVision, NLPDatasets, General,
}

// ParseCategory 未知类别返回 false
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories {
		if string(c) == s {
			return c, true
		}
	}
	return General, false
}

// Intent 分类结果，只在真实数据路径内部使用
type Intent struct {
	Category        Category `json:"category"`
	SpecificRequest string   `json:"specificRequest"`
	Keywords        []string `json:"keywords"`
}

// 关键词启发式规则，按顺序整词匹配，先命中者生效。
// crypto 必须排在 finance 前面，"bitcoin price" 之类的请求才不会落到 finance
var heuristicRules = []struct {
	category Category
	keywords []string
}{
	{Crypto, []string{"crypto", "bitcoin", "ethereum", "btc", "eth", "coin", "blockchain", "token price"}},
	{Weather, []string{"weather", "temperature", "forecast", "rainfall", "humidity", "climate"}},
	{News, []string{"news", "headline", "article", "breaking", "journalism"}},
	{Sports, []string{"sport", "team", "football", "soccer", "basketball", "nba", "league", "player"}},
	{Finance, []string{"stock", "market", "exchange rate", "currency", "forex", "finance", "financial", "trading", "price"}},
	{Health, []string{"health", "disease", "life expectancy", "hospital", "mortality", "medical", "covid"}},
	{Education, []string{"education", "university", "universities", "school", "college", "student"}},
	{Environment, []string{"environment", "environmental", "air quality", "pollution", "emission", "pm2.5", "aqi"}},
	{Demographics, []string{"demographic", "population", "countries", "country", "census", "capital"}},
	{Transportation, []string{"transport", "transportation", "flight", "aircraft", "airline", "traffic", "aviation"}},
	{Economics, []string{"economic", "economy", "gdp", "inflation", "unemployment"}},
	{Government, []string{"government", "public spending", "budget", "policy", "expenditure"}},
	{ComputerVision, []string{"computer vision", "image classification", "object detection", "image dataset", "vision model"}},
	{NLPDatasets, []string{"nlp", "text classification", "sentiment", "language model dataset", "corpus"}},
	{MLDatasets, []string{"machine learning", "ml dataset", "dataset", "hugging face", "huggingface"}},
	{AITraining, []string{"ai training", "model training", "training set"}},
}

// GenerationHint 生成模拟数据时附加的领域提示；新增类别时在这里补一个分支
func (c Category) GenerationHint() string {
	switch c {
	case Finance:
		return "Use realistic tickers, prices with two decimals and ISO dates."
	case Weather:
		return "Use real city names with plausible temperatures in Celsius, humidity and wind speeds."
	case News:
		return "Write plausible headlines with sources, authors and publication dates."
	case Crypto:
		return "Use real coin names and symbols with plausible USD prices and market caps."
	case Sports:
		return "Use plausible team and player names with season statistics."
	case Government:
		return "Use plausible agencies, budgets in USD and fiscal years."
	case Education:
		return "Use plausible institution names, locations and enrollment figures."
	case Health:
		return "Use plausible health indicators with units and reporting years."
	case Environment:
		return "Use plausible pollutant readings with units and measurement locations."
	case Demographics:
		return "Use real country or city names with plausible population figures."
	case Transportation:
		return "Use plausible routes, carriers, vehicle identifiers and timestamps."
	case Economics:
		return "Use real country names with plausible macroeconomic indicators and years."
	case MLDatasets:
		return "Each record should look like a labeled machine learning example with a clear target column."
	case AITraining:
		return "Each record should be an instruction, an optional input and a high quality response suitable for fine-tuning a language model."
	case ComputerVision:
		return "Each record should describe an image sample with file name, label and bounding box or resolution metadata."
	case NLPDatasets:
		return "Each record should contain a natural language text and its annotation such as a label or sentiment."
	default:
		return ""
	}
}
