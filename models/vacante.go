package models

// 新建会话选择器用的协作方数据，只读消费

type Vacante struct {
	ID     uint   `json:"id"`
	Titulo string `json:"titulo"`
	Activa bool   `json:"activa"`
}

type Postulacion struct {
	VacanteID       uint   `json:"vacante_id"`
	CandidatoID     uint   `json:"candidato_id"`
	CandidatoNombre string `json:"candidato_nombre"`
}
