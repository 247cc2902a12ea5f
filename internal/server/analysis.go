package server

import (
	"math"
	"sort"
	"strconv"
)

// The vote analysis engine is pure: it derives everything from a revealed vote
// set and the room's user list, and holds no state of its own.

const nonNumericCard = "?"

type VoteStats struct {
	Average           float64 `json:"average"`
	Median            float64 `json:"median"`
	Mode              []int   `json:"mode"`
	StandardDeviation float64 `json:"standard_deviation"`
	Range             int     `json:"range"`
	Outliers          []int   `json:"outliers"`
}

type VoteCluster struct {
	Label      string   `json:"label"`
	Value      int      `json:"value"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
	Users      []string `json:"users"`
}

type SplitGroup struct {
	Values []int `json:"values"`
	Count  int   `json:"count"`
}

type AgreementQuality struct {
	ConsensusStrength float64      `json:"consensus_strength"`
	AgreementLevel    string       `json:"agreement_level"`
	HasSplit          bool         `json:"has_split"`
	SplitGroups       []SplitGroup `json:"split_groups,omitempty"`
}

type VoteAnalysis struct {
	Stats             VoteStats        `json:"stats"`
	ParticipationRate float64          `json:"participation_rate"`
	VoteClusters      []VoteCluster    `json:"vote_clusters"`
	AgreementQuality  AgreementQuality `json:"agreement_quality"`
	Insights          []string         `json:"insights"`
	Recommendations   []string         `json:"recommendations"`
}

// AnalyzeVotes computes descriptive statistics, consensus classification, and
// advisory strings from a revealed vote set. Votes carrying the "?" card count
// toward participation but are excluded from the numeric statistics.
func AnalyzeVotes(votes []SanitizedVote, users []User) VoteAnalysis {
	stats := computeStats(numericVotes(votes))
	participation := participationRate(votes, users)
	clusters := buildClusters(votes, users)
	agreement := computeAgreement(stats, clusters)

	return VoteAnalysis{
		Stats:             stats,
		ParticipationRate: participation,
		VoteClusters:      clusters,
		AgreementQuality:  agreement,
		Insights:          buildInsights(stats, participation, agreement),
		Recommendations:   buildRecommendations(stats, participation, agreement),
	}
}

func numericVotes(votes []SanitizedVote) []int {
	values := make([]int, 0, len(votes))
	for _, vote := range votes {
		if !vote.HasVoted || vote.CardLabel == nil || *vote.CardLabel == nonNumericCard {
			continue
		}
		value, err := strconv.Atoi(*vote.CardLabel)
		if err != nil {
			continue
		}
		values = append(values, value)
	}
	return values
}

func computeStats(values []int) VoteStats {
	if len(values) == 0 {
		return VoteStats{Mode: []int{}, Outliers: []int{}}
	}

	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	sum := 0
	for _, v := range values {
		sum += v
	}
	average := float64(sum) / float64(len(values))

	var median float64
	n := len(sorted)
	if n%2 == 0 {
		median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	} else {
		median = float64(sorted[n/2])
	}

	frequency := make(map[int]int)
	maxFreq := 0
	for _, v := range values {
		frequency[v]++
		if frequency[v] > maxFreq {
			maxFreq = frequency[v]
		}
	}
	mode := make([]int, 0)
	for v, freq := range frequency {
		if freq == maxFreq {
			mode = append(mode, v)
		}
	}
	sort.Ints(mode)

	variance := 0.0
	for _, v := range values {
		variance += (float64(v) - average) * (float64(v) - average)
	}
	variance /= float64(len(values))
	stdDev := math.Sqrt(variance)

	voteRange := sorted[n-1] - sorted[0]

	// Tukey fences with index-truncated quartiles.
	q1 := float64(sorted[n/4])
	q3 := float64(sorted[n*3/4])
	iqr := q3 - q1
	outliers := make([]int, 0)
	for _, v := range values {
		if float64(v) < q1-1.5*iqr || float64(v) > q3+1.5*iqr {
			outliers = append(outliers, v)
		}
	}

	return VoteStats{
		Average:           average,
		Median:            median,
		Mode:              mode,
		StandardDeviation: stdDev,
		Range:             voteRange,
		Outliers:          outliers,
	}
}

func participationRate(votes []SanitizedVote, users []User) float64 {
	if len(users) == 0 {
		return 0
	}
	voted := 0
	for _, vote := range votes {
		if vote.HasVoted {
			voted++
		}
	}
	return float64(voted) / float64(len(users)) * 100
}

func buildClusters(votes []SanitizedVote, users []User) []VoteCluster {
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Name
	}

	byLabel := make(map[string]*VoteCluster)
	voted := 0
	for _, vote := range votes {
		if !vote.HasVoted || vote.CardLabel == nil {
			continue
		}
		voted++
		label := *vote.CardLabel
		cluster, ok := byLabel[label]
		if !ok {
			value, _ := strconv.Atoi(label)
			cluster = &VoteCluster{Label: label, Value: value, Users: []string{}}
			byLabel[label] = cluster
		}
		cluster.Count++
		if name, ok := names[vote.UserID]; ok {
			cluster.Users = append(cluster.Users, name)
		}
	}

	clusters := make([]VoteCluster, 0, len(byLabel))
	for _, cluster := range byLabel {
		if voted > 0 {
			cluster.Percentage = float64(cluster.Count) / float64(voted) * 100
		}
		clusters = append(clusters, *cluster)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Label < clusters[j].Label
	})
	return clusters
}

func computeAgreement(stats VoteStats, clusters []VoteCluster) AgreementQuality {
	if stats.StandardDeviation == 0 {
		return AgreementQuality{
			ConsensusStrength: 100,
			AgreementLevel:    "high",
			HasSplit:          false,
		}
	}

	normalized := 0.0
	if stats.Range > 0 {
		normalized = stats.StandardDeviation / float64(stats.Range)
	}
	consensus := math.Max(0, math.Min(100, (1-normalized)*100))

	level := "low"
	if consensus > 80 {
		level = "high"
	} else if consensus > 60 {
		level = "medium"
	}

	hasSplit := len(clusters) >= 2 && clusters[0].Percentage > 30 && clusters[1].Percentage > 30

	quality := AgreementQuality{
		ConsensusStrength: consensus,
		AgreementLevel:    level,
		HasSplit:          hasSplit,
	}
	if hasSplit {
		for _, cluster := range clusters[:2] {
			quality.SplitGroups = append(quality.SplitGroups, SplitGroup{
				Values: []int{cluster.Value},
				Count:  cluster.Count,
			})
		}
	}
	return quality
}

func buildInsights(stats VoteStats, participation float64, agreement AgreementQuality) []string {
	insights := make([]string, 0)
	if participation == 100 {
		insights = append(insights, "Full team participation achieved")
	} else if participation < 50 {
		insights = append(insights, "Low participation rate may affect estimate reliability")
	}
	if agreement.HasSplit {
		insights = append(insights, "Team opinion is split between different estimates")
	}
	if len(stats.Outliers) > 0 {
		insights = append(insights, "Some estimates significantly differ from the team consensus")
	}
	if agreement.ConsensusStrength > 90 {
		insights = append(insights, "Strong team alignment on this estimate")
	}
	return insights
}

func buildRecommendations(stats VoteStats, participation float64, agreement AgreementQuality) []string {
	recommendations := make([]string, 0)
	if agreement.HasSplit {
		recommendations = append(recommendations, "Consider discussing the different perspectives before finalizing")
	}
	if len(stats.Outliers) > 0 {
		recommendations = append(recommendations, "Review outlier estimates to understand different viewpoints")
	}
	if participation < 100 {
		recommendations = append(recommendations, "Encourage all team members to participate for better estimates")
	}
	if stats.Range > 8 {
		recommendations = append(recommendations, "Wide range of estimates suggests need for more discussion")
	}
	return recommendations
}
