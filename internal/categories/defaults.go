package categories

import "github.com/cuentas-dev/cuentas/internal/model"

// Defaults returns the category set seeded by `cuentas init`.
func Defaults() []model.Category {
	return []model.Category{
		{Name: "Alimentación", Description: "Supermercados y tiendas de comida"},
		{Name: "Hogar", Description: "Alquiler, hipoteca y mantenimiento"},
		{Name: "Suministros", Description: "Luz, gas, agua, teléfono e internet"},
		{Name: "Transporte", Description: "Combustible, transporte público y peajes"},
		{Name: "Salud"},
		{Name: "Ocio", Description: "Restaurantes, viajes y suscripciones"},
		{Name: "Nómina", Description: "Ingresos por trabajo"},
		{Name: "Transferencias"},
		{Name: "Impuestos"},
		{Name: "Otros"},
	}
}
