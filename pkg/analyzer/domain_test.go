package analyzer

import "testing"

func TestClassifyDomain(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "technical vocabulary",
			content: "The API server streams logs. Each deployment rolls the database schema. A protocol handshake secures the endpoint.",
			want:    DomainTechnical,
		},
		{
			name:    "academic vocabulary",
			content: "This study tests a hypothesis. The research methodology follows prior literature. The dataset supports the findings.",
			want:    DomainAcademic,
		},
		{
			name:    "business vocabulary",
			content: "Quarterly revenue grew. Market strategy targets new customers. The investment forecast improved.",
			want:    DomainBusiness,
		},
		{
			name:    "legal vocabulary",
			content: "The contract includes a liability clause. Pursuant to the statute, the plaintiff seeks arbitration.",
			want:    DomainLegal,
		},
		{
			name:    "korean technical vocabulary",
			content: "시스템 서버 배포 과정을 설명한다. 시스템 구성이 중요하다.",
			want:    DomainTechnical,
		},
		{
			name:    "everyday text stays general",
			content: "We walked to the park and ate lunch together.",
			want:    DomainGeneral,
		},
		{
			name:    "single hit is below the threshold",
			content: "The server is fast.",
			want:    DomainGeneral,
		},
		{
			name:    "empty content",
			content: "",
			want:    DomainGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDomain(tt.content); got != tt.want {
				t.Errorf("classifyDomain = %q, want %q", got, tt.want)
			}
		})
	}
}
