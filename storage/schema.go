package storage

const schema = `
CREATE TABLE IF NOT EXISTS Empresa (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nombre TEXT NOT NULL,
	rut TEXT,
	direccion TEXT,
	telefono TEXT,
	email TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS Planta (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nombre TEXT NOT NULL,
	id_empresa INTEGER NOT NULL REFERENCES Empresa(id),
	direccion TEXT,
	ciudad TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_planta_empresa ON Planta(id_empresa);

CREATE TABLE IF NOT EXISTS Maquina (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nombre TEXT NOT NULL,
	modelo TEXT,
	numero_serie TEXT,
	id_planta INTEGER NOT NULL REFERENCES Planta(id),
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_maquina_planta ON Maquina(id_planta);

CREATE TABLE IF NOT EXISTS Supervisor (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nombre TEXT NOT NULL,
	email TEXT,
	telefono TEXT,
	id_empresa INTEGER REFERENCES Empresa(id),
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS InformeServicio (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fecha TEXT NOT NULL,
	id_maquina INTEGER NOT NULL REFERENCES Maquina(id),
	id_supervisor INTEGER REFERENCES Supervisor(id),
	tipo_servicio TEXT,
	descripcion TEXT,
	estado TEXT NOT NULL DEFAULT 'pendiente',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_informe_servicio_maquina ON InformeServicio(id_maquina);

CREATE TABLE IF NOT EXISTS InformeVisita (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fecha TEXT NOT NULL,
	id_planta INTEGER NOT NULL REFERENCES Planta(id),
	id_supervisor INTEGER REFERENCES Supervisor(id),
	motivo TEXT,
	observaciones TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_informe_visita_planta ON InformeVisita(id_planta);
`
