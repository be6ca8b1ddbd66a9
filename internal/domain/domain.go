package domain

import (
	"github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/domain/user"
)

type (
	User = user.User

	IfirRowFact     = facts.IfirRowFact
	RaRowFact       = facts.RaRowFact
	IfirDetailFact  = facts.IfirDetailFact
	RaDetailFact    = facts.RaDetailFact
	DetailCommon    = facts.DetailCommon
	OdmPlantMapping = facts.OdmPlantMapping
	Family          = facts.Family

	UploadTask = tasks.UploadTask
)

const (
	FamilyIFIR = facts.FamilyIFIR
	FamilyRA   = facts.FamilyRA
)
