// Package prompts holds model ids, system prompts and the builders for
// per-request user prompts.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Catalog struct {
	Models struct {
		Text  string `yaml:"text"`
		Image string `yaml:"image"`
	} `yaml:"models"`
	System struct {
		Bill          string `yaml:"bill"`
		DesignAdvisor string `yaml:"design_advisor"`
		Predict       string `yaml:"predict"`
		Plan          string `yaml:"plan"`
		Edges         string `yaml:"edges"`
		CopilotDaily  string `yaml:"copilot_daily"`
		CopilotChat   string `yaml:"copilot_chat"`
		Transcribe    string `yaml:"transcribe"`
	} `yaml:"system"`
	User struct {
		ImageAnalysis      string `yaml:"image_analysis"`
		ImageEnhance       string `yaml:"image_enhance"`
		DesignImageDefault string `yaml:"design_image_default"`
	} `yaml:"user"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	if c.Models.Text == "" || c.Models.Image == "" {
		return nil, fmt.Errorf("prompt catalog: models.text and models.image are required")
	}
	return &c, nil
}

// MustLoad is Load for process start-up.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func BillUser(month string) string {
	return fmt.Sprintf("Analyze this utility bill for month: %s. Extract all costs and usage data.", month)
}

// BillUserFromText is used when the bill is a PDF and its text was extracted locally.
func BillUserFromText(month, text string) string {
	return BillUser(month) + "\n\nBill text:\n" + text
}

func PredictUser(energy, water float64) string {
	return fmt.Sprintf("Analyze this usage data:\nEnergy: %s kWh\nWater: %s liters\nProvide sustainability insights and predicted savings in JSON format.",
		num(energy), num(water))
}

func CopilotDailyUser(name string, avgEnergy, avgWater, avgCO2 float64) string {
	return fmt.Sprintf("User: %s\nLast 24h avg: Energy=%.1f kWh, Water=%.1fL, CO2=%.1fkg\n\nProvide 2-3 brief tips to improve.",
		name, avgEnergy, avgWater, avgCO2)
}

func CopilotChatUser(message, conversation string) string {
	conversation = strings.TrimSpace(conversation)
	if conversation == "" {
		return message
	}
	return "Conversation so far:\n" + conversation + "\n\nLatest message: " + message
}

type PlanContext struct {
	AvgKWh            float64 `json:"avg_kwh"`
	AvgLiters         float64 `json:"avg_liters"`
	GridPriceRsPerKWh float64 `json:"grid_price_rs_per_kwh"`
	LSTC              float64 `json:"lst_c"`
}

const planTemplate = `You are an AI sustainability optimizer using causal inference and digital twin simulation.

User Context:
- Average kWh: %s
- Average Liters: %s
- Grid Price (Rs/kWh): %s
- Local Surface Temperature (°C): %s

Generate a prescriptive plan with:
1. A brief rationale (2-3 sentences) explaining the causal factors
2. A list of 3-5 concrete interventions

For each intervention, provide:
- type: (e.g., "solar_panel", "water_harvesting", "led_retrofit", "thermal_insulation", "smart_thermostat")
- window: time window for action (e.g., "next_7_days", "next_30_days")
- expected_kg: expected CO2 savings in kg
- expected_water_kl: expected water savings in kiloliters (optional, only if intervention affects water)

Return your response as JSON:
{
  "rationale": "string",
  "interventions": [
    {
      "type": "string",
      "window": "string",
      "expected_kg": number,
      "expected_water_kl": number (optional)
    }
  ]
}`

func PlanUser(c PlanContext) string {
	return fmt.Sprintf(planTemplate, num(c.AvgKWh), num(c.AvgLiters), num(c.GridPriceRsPerKWh), num(c.LSTC))
}

type EdgeContext struct {
	AvgEnergy           float64
	AvgWater            float64
	AvgCO2              float64
	BillCount           int
	RecentInterventions []string
}

const edgesTemplate = `You are a causal inference AI analyzing sustainability data to discover structural causal model (SCM) edges.

User Data Summary:
- Average Energy Usage: %.2f kWh
- Average Water Usage: %.2f liters
- Average CO2 Emissions: %.2f kg
- Number of Bills: %d
- Recent Interventions: %s

Task: Discover 5-8 causal edges in the form of directed relationships between variables.

Consider these node types:
- Energy factors: grid_price, temperature, energy_usage, cooling_load, heating_load
- Water factors: water_usage, water_price, irrigation, appliances
- Environmental: co2_emission, carbon_intensity, renewable_energy
- Behavioral: occupancy, usage_patterns, conservation_actions
- Infrastructure: insulation, solar_panels, smart_devices, hvac_efficiency

Return your response as JSON with an array of edges:
{
  "edges": [
    {
      "source_node": "temperature",
      "target_node": "cooling_load",
      "weight": 0.85
    }
  ]
}

Each edge should have:
- source_node: The causal variable (string)
- target_node: The effect variable (string)
- weight: Strength of causal relationship (0.0 to 1.0)

Base your edges on realistic causal physics and sustainability science.`

func EdgesUser(c EdgeContext) string {
	return fmt.Sprintf(edgesTemplate, c.AvgEnergy, c.AvgWater, c.AvgCO2, c.BillCount, strings.Join(c.RecentInterventions, "; "))
}

type BlueprintSpec struct {
	PlotSize      float64  `json:"plotSize"`
	PlotUnit      string   `json:"plotUnit"`
	Facing        string   `json:"facing"`
	NumFloors     int      `json:"numFloors"`
	NumRooms      int      `json:"numRooms"`
	GreenFeatures []string `json:"greenFeatures"`
}

// VastuEntrance names the entrance direction and its Vastu meaning for a facing.
func VastuEntrance(facing string) string {
	switch facing {
	case "East":
		return "East (prosperity)"
	case "North":
		return "North (wealth)"
	case "West":
		return "West (evening sun)"
	default:
		return "South (stability)"
	}
}

var featureElements = []struct{ key, text string }{
	{"solar", "rooftop solar panels"},
	{"rainwater", "rainwater harvesting system"},
	{"natural_ventilation", "cross-ventilation design"},
}

// SustainableElements maps selected green feature keys to design elements. Unknown keys are ignored.
func SustainableElements(features []string) []string {
	var out []string
	for _, fe := range featureElements {
		for _, f := range features {
			if f == fe.key {
				out = append(out, fe.text)
				break
			}
		}
	}
	return out
}

func BlueprintImageUser(s BlueprintSpec) string {
	var b strings.Builder
	b.WriteString("Create a detailed architectural floor plan blueprint for a sustainable, Vastu-compliant house with these specifications:\n")
	fmt.Fprintf(&b, "- Plot Size: %s %s\n", num(s.PlotSize), s.PlotUnit)
	fmt.Fprintf(&b, "- Facing Direction: %s\n", s.Facing)
	fmt.Fprintf(&b, "- Number of Floors: %d\n", s.NumFloors)
	fmt.Fprintf(&b, "- Number of Rooms: %d\n", s.NumRooms)
	fmt.Fprintf(&b, "- Green Features: %s\n\n", strings.Join(s.GreenFeatures, ", "))
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "1. Follow Vastu Shastra principles: entrance in the %s direction\n", VastuEntrance(s.Facing))
	fmt.Fprintf(&b, "2. Incorporate sustainable design elements: %s\n", strings.Join(SustainableElements(s.GreenFeatures), ", "))
	b.WriteString("3. Show room layouts with dimensions, door/window placements\n")
	b.WriteString("4. Include compass directions and Vastu zones (fire in SE, water in NE, etc.)\n")
	b.WriteString("5. Mark green features with icons (solar panels, water tanks, ventilation paths)\n")
	b.WriteString("6. Professional architectural style with clean lines and labels\n\n")
	b.WriteString("Make it look like a professional architectural blueprint with a title block showing project details.")
	return b.String()
}

func BlueprintAnalysisUser(s BlueprintSpec) string {
	var b strings.Builder
	b.WriteString("Analyze this sustainable house design:\n")
	fmt.Fprintf(&b, "- Plot: %s %s, Facing: %s\n", num(s.PlotSize), s.PlotUnit, s.Facing)
	fmt.Fprintf(&b, "- %d floor(s), %d rooms\n", s.NumFloors, s.NumRooms)
	fmt.Fprintf(&b, "- Features: %s\n\n", strings.Join(s.GreenFeatures, ", "))
	b.WriteString("Provide:\n")
	b.WriteString("1. Energy Efficiency Insights: Sunlight direction, natural lighting, ventilation zones, solar potential\n")
	b.WriteString("2. Sustainability Score (0-100): Based on green features, orientation, natural resource usage\n")
	fmt.Fprintf(&b, "3. Vastu Compliance Rating (0-10): How well it follows Vastu principles for the %s facing direction\n\n", s.Facing)
	b.WriteString(`Format as JSON: {"energyInsights": "...", "sustainabilityScore": 85, "vastuRating": 8.5, "analysis": "..."}`)
	return b.String()
}

// num prints a float without a trailing ".0" for whole numbers.
func num(f float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%g", f), ".0")
}
