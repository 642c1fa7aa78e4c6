package api

import (
	"context"
	"net/http"
	"strconv"

	"mensajeria/models"
)

// 新建会话选择器用的协作方接口，都是只读

// ActiveVacantes 当前用户（企业侧）的在招职位
func (c *Client) ActiveVacantes(ctx context.Context) ([]models.Vacante, error) {
	var items []models.Vacante
	if err := c.do(ctx, http.MethodGet, "/vacantes/activas", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Postulaciones 某职位下的候选人投递列表
func (c *Client) Postulaciones(ctx context.Context, vacanteID uint) ([]models.Postulacion, error) {
	path := "/vacantes/" + strconv.FormatUint(uint64(vacanteID), 10) + "/postulaciones"
	var items []models.Postulacion
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
